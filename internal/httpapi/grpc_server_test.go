package httpapi

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/auth"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales/remote"
)

const bufSize = 1024 * 1024

func startBufGRPC(t *testing.T, srv *GRPCServer) (*remote.Client, func()) {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	server := srv.NewServer()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			t.Logf("grpc serve error: %v", err)
		}
	}()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}
	client, err := remote.Dial("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}

	cleanup := func() {
		server.GracefulStop()
		_ = client.Close()
		_ = listener.Close()
	}
	return client, cleanup
}

type reportWorld struct {
	svc                    *sales.Service
	tokens                 *auth.TokenService
	owner, manager, c1, c2 org.Account
}

func newReportWorld(t *testing.T) *reportWorld {
	t.Helper()
	ctx := context.Background()
	dir, _ := org.NewService(org.NewInMemory())
	svc, err := sales.NewService(sales.NewInMemory(), dir)
	if err != nil {
		t.Fatalf("sales service: %v", err)
	}
	tokens, _ := auth.NewTokenService("grpc-secret")
	w := &reportWorld{svc: svc, tokens: tokens}
	mk := func(email string, role org.Role) org.Account {
		acc, err := dir.CreateAccount(ctx, bootstrap, org.NewAccount{FirstName: email, LastName: "G", Email: email + "@example.com", Role: role})
		if err != nil {
			t.Fatalf("create account: %v", err)
		}
		return acc
	}
	w.owner = mk("owner", org.RoleOwner)
	w.manager = mk("manager", org.RoleManager)
	w.c1 = mk("c1", org.RoleContributor)
	w.c2 = mk("c2", org.RoleContributor)
	sq, err := dir.CreateSquad(ctx, bootstrap, "G", w.manager.ID)
	if err != nil {
		t.Fatalf("create squad: %v", err)
	}
	if _, err := dir.SetMembers(ctx, bootstrap, sq.ID, []string{w.c1.ID, w.c2.ID}); err != nil {
		t.Fatalf("set members: %v", err)
	}
	for _, s := range []struct {
		who    org.Account
		date   string
		amount string
	}{{w.c1, "2024-05-01", "30.00"}, {w.c2, "2024-05-02", "45.50"}, {w.c1, "2024-06-01", "5.00"}} {
		d, _ := sales.ParseDate(s.date)
		a, _ := sales.ParseAmount(s.amount)
		if _, err := svc.RecordSale(ctx, org.Actor{ID: s.who.ID, Role: s.who.Role}, sales.NewSale{Date: d, Amount: a}); err != nil {
			t.Fatalf("record sale: %v", err)
		}
	}
	return w
}

func (w *reportWorld) ctx(t *testing.T, acc org.Account) context.Context {
	t.Helper()
	tok, _, err := w.tokens.GenerateToken(acc.ID, acc.Role, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return remote.WithToken(context.Background(), tok)
}

func TestGRPCReports(t *testing.T) {
	w := newReportWorld(t)
	client, cleanup := startBufGRPC(t, NewGRPCServer(w.svc, w.tokens, ReadyProbe{}))
	defer cleanup()

	ctx, cancel := context.WithTimeout(w.ctx(t, w.owner), 2*time.Second)
	defer cancel()
	lb, err := client.Leaderboard(ctx, 1, "", "")
	if err != nil {
		t.Fatalf("Leaderboard error: %v", err)
	}
	if lb.Limit != 1 || len(lb.Entries) != 1 || lb.Entries[0].Account.ID != w.c2.ID || lb.Entries[0].Total.String() != "45.50" {
		t.Fatalf("unexpected leaderboard: %+v", lb)
	}

	me, err := client.PersonalStats(w.ctx(t, w.c1), "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("PersonalStats error: %v", err)
	}
	if me.Count != 1 || me.Sum.String() != "30.00" {
		t.Fatalf("unexpected personal stats: %+v", me)
	}

	squad, err := client.SquadStats(w.ctx(t, w.manager), "", "")
	if err != nil {
		t.Fatalf("SquadStats error: %v", err)
	}
	if len(squad.Rows) != 2 || squad.Rows[0].Sum.String() != "45.50" || squad.Rows[1].Count != 2 {
		t.Fatalf("unexpected squad stats: %+v", squad.Rows)
	}
}

func TestGRPCReportErrors(t *testing.T) {
	w := newReportWorld(t)
	client, cleanup := startBufGRPC(t, NewGRPCServer(w.svc, w.tokens, ReadyProbe{}))
	defer cleanup()

	if _, err := client.Leaderboard(w.ctx(t, w.c1), 5, "", ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := client.PersonalStats(w.ctx(t, w.c1), "05/01/2024", ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err := client.Leaderboard(context.Background(), 5, "", "")
	if st, _ := status.FromError(err); st.Code() != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	_, err = client.Leaderboard(remote.WithToken(context.Background(), "forged"), 5, "", "")
	if st, _ := status.FromError(err); st.Code() != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated for forged token, got %v", err)
	}
}

type failingReadiness struct{}

func (f failingReadiness) Check(context.Context) error { return errors.New("boom") }

func TestGRPCHealth(t *testing.T) {
	w := newReportWorld(t)

	client, cleanup := startBufGRPC(t, NewGRPCServer(w.svc, w.tokens, ReadyProbe{}))
	st, err := client.Health(context.Background())
	cleanup()
	if err != nil || st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected serving, got %v (%v)", st, err)
	}

	client, cleanup = startBufGRPC(t, NewGRPCServer(w.svc, w.tokens, failingReadiness{}))
	defer cleanup()
	st, err = client.Health(context.Background())
	if err != nil || st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected not serving, got %v (%v)", st, err)
	}
}
