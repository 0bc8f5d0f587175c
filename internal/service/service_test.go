package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/roomsplit/internal/api"
	"github.com/mmynk/roomsplit/internal/auth"
	"github.com/mmynk/roomsplit/internal/events"
	"github.com/mmynk/roomsplit/internal/middleware"
	"github.com/mmynk/roomsplit/internal/models"
	"github.com/mmynk/roomsplit/internal/storage/sqlite"
)

const testUserHeader = "X-Test-User"

// testAuthInterceptor trusts the user ID sent in testUserHeader.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if userID := req.Header().Get(testUserHeader); userID != "" {
				ctx = middleware.WithUser(ctx, userID, "")
			}
			return next(ctx, req)
		}
	}
}

type recordingPublisher struct {
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []events.Type {
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	store      *sqlite.SQLiteStore
	publisher  *recordingPublisher
	auth       *api.AuthServiceClient
	households *api.HouseholdServiceClient
	expenses   *api.ExpenseServiceClient
}

// setupTestServer serves all three services over a temp SQLite database.
// The auth service uses real tokens; the others trust testUserHeader.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })

	publisher := &recordingPublisher{}
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	testAuth := connect.WithInterceptors(testAuthInterceptor())
	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, store, slog.Default()),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager, api.PublicProcedures)),
	))
	mux.Handle(api.NewHouseholdServiceHandler(NewHouseholdService(store, publisher), testAuth))
	mux.Handle(api.NewExpenseServiceHandler(NewExpenseService(store, publisher), testAuth))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:      store,
		publisher:  publisher,
		auth:       api.NewAuthServiceClient(http.DefaultClient, server.URL),
		households: api.NewHouseholdServiceClient(http.DefaultClient, server.URL),
		expenses:   api.NewExpenseServiceClient(http.DefaultClient, server.URL),
	}
}

// as wraps msg in a request made by userID.
func as[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, userID)
	return req
}

func (e *testEnv) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := models.NewUser(name+"@example.com", name, "hash")
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

// flat is a household with two rooms:
// Alice (creator, linked) and Bob share room A, Carol lives in room B.
type flat struct {
	owner     *models.User
	household *api.Household
	roomA     *api.Room
	roomB     *api.Room
	alice     *api.Member
	bob       *api.Member
	carol     *api.Member
}

func (e *testEnv) seedFlat(t *testing.T) *flat {
	t.Helper()
	ctx := context.Background()

	owner := e.createUser(t, "Alice")
	created, err := e.households.CreateHousehold(ctx, as(owner.ID, &api.CreateHouseholdRequest{
		Name:       "Flat 4B",
		MemberName: "Alice",
	}))
	require.NoError(t, err)
	h := created.Msg.Household

	room := func(name string) *api.Room {
		resp, err := e.households.CreateRoom(ctx, as(owner.ID, &api.CreateRoomRequest{HouseholdID: h.ID, Name: name}))
		require.NoError(t, err)
		return resp.Msg.Room
	}
	roomA, roomB := room("Room A"), room("Room B")

	alice := created.Msg.Member
	updated, err := e.households.UpdateMember(ctx, as(owner.ID, &api.UpdateMemberRequest{
		HouseholdID: h.ID, MemberID: alice.ID, Name: "Alice", RoomID: roomA.ID, UserID: owner.ID,
	}))
	require.NoError(t, err)

	add := func(name, roomID string) *api.Member {
		resp, err := e.households.AddMember(ctx, as(owner.ID, &api.AddMemberRequest{HouseholdID: h.ID, Name: name, RoomID: roomID}))
		require.NoError(t, err)
		return resp.Msg.Member
	}

	return &flat{
		owner:     owner,
		household: h,
		roomA:     roomA,
		roomB:     roomB,
		alice:     updated.Msg.Member,
		bob:       add("Bob", roomA.ID),
		carol:     add("Carol", roomB.ID),
	}
}
