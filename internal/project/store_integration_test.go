//go:build integration

package project_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/contact"
	"github.com/alecgard/huddle/internal/database"
	"github.com/alecgard/huddle/internal/message"
	"github.com/alecgard/huddle/internal/project"
	"github.com/alecgard/huddle/internal/user"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway Postgres with the schema migrated and
// returns a pool connected to it.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "huddle",
				"POSTGRES_PASSWORD": "huddle",
				"POSTGRES_DB":       "huddle",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := pg.Terminate(context.Background()); err != nil {
			t.Logf("terminating postgres: %v", err)
		}
	})

	endpoint, err := pg.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		t.Fatalf("resolving endpoint: %v", err)
	}
	url := "postgres://huddle:huddle@" + endpoint + "/huddle?sslmode=disable"

	m, err := migrate.New("file://../../migrations", url)
	if err != nil {
		t.Fatalf("opening migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("applying migrations: %v", err)
	}
	m.Close()

	pool, err := database.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func registerUser(t *testing.T, users *user.Store, username string) *auth.User {
	t.Helper()
	u, err := users.Create(context.Background(), user.CreateUserInput{Username: username, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("creating %s: %v", username, err)
	}
	return &auth.User{ID: u.ID, Username: u.Username}
}

func TestPostgresWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool := startPostgres(t)
	ctx := context.Background()

	users := user.NewStore(pool, time.Hour)
	alice := registerUser(t, users, "alice")
	bob := registerUser(t, users, "bob")
	carol := registerUser(t, users, "carol")

	svc := project.NewService(project.NewTxRunner(pool), nil, "http://huddle.test")

	p, err := svc.Create(ctx, alice, project.CreateInput{
		Name: "Apollo", Description: "Moon shot", StartDate: "2025-01-01", EndDate: "2025-06-30", IsPublic: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := project.CreateInput{
		Name: "Gemini", StartDate: "2025-01-01", EndDate: "2025-06-30", StakeholderIDs: []string{"x"},
	}
	var verr *project.ValidationError
	if _, err := svc.Create(ctx, alice, bad); !errors.As(err, &verr) || verr.Fields["stakeholders"] == "" {
		t.Fatalf("malformed stakeholder id: expected validation error, got %v", err)
	}

	// Concurrent-safe get-or-create: asking twice yields one request.
	first, err := svc.RequestJoin(ctx, bob, p.ID)
	if err != nil || !first.Created {
		t.Fatalf("first join: %+v %v", first, err)
	}
	second, err := svc.RequestJoin(ctx, bob, p.ID)
	if err != nil || second.Created || second.Request.ID != first.Request.ID {
		t.Fatalf("second join should return the same request: %+v %v", second, err)
	}

	if _, err := svc.AcceptJoinRequest(ctx, alice, first.Request.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.AcceptJoinRequest(ctx, alice, first.Request.ID); !errors.Is(err, project.ErrConflict) {
		t.Fatalf("second accept: expected conflict, got %v", err)
	}

	d, err := svc.Detail(ctx, bob, p.ID)
	if err != nil || !d.IsStakeholder || !d.CanManage {
		t.Fatalf("bob should manage the project: %+v %v", d, err)
	}

	contacts := contact.NewStore(pool)
	for _, pair := range [][2]*auth.User{{alice, bob}, {bob, alice}} {
		ok, err := contacts.Exists(ctx, pair[0].ID, pair[1].ID)
		if err != nil || !ok {
			t.Errorf("expected %s to have %s as a contact (err %v)", pair[0].Username, pair[1].Username, err)
		}
	}

	task, err := svc.CreateTask(ctx, bob, p.ID, project.CreateTaskInput{
		Title: "Launch", DueDate: "2025-03-01", AssignedTo: d.Project.StakeholderIDs(),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	done := true
	if _, err := svc.UpdateTask(ctx, bob, task.ID, project.UpdateTaskInput{IsComplete: &done}); err != nil {
		t.Fatalf("update task: %v", err)
	}

	// Carol filters public projects by name.
	page, err := svc.List(ctx, carol, project.ListFilter{View: project.ViewPublic, Query: "apo"})
	if err != nil || len(page.Projects) != 1 || page.Projects[0].Progress() != 100 {
		t.Fatalf("unexpected public listing %+v %v", page, err)
	}

	left, err := svc.LeaveProject(ctx, bob, p.ID)
	if err != nil || !left.Left {
		t.Fatalf("leave: %+v %v", left, err)
	}

	mail := message.NewStore(pool)
	unread, err := mail.UnreadCount(ctx, alice.ID)
	if err != nil || unread != 2 {
		t.Errorf("expected 2 unread notices for alice, got %d (err %v)", unread, err)
	}

	d, err = svc.Detail(ctx, alice, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantTitles := []string{"Stakeholder Left", "Task completed: Launch", "Task Created: Launch", "Join Request Accepted", "Join Request Submitted", "Project Created"}
	if len(d.Activities) != len(wantTitles) {
		t.Fatalf("expected %d activities, got %d", len(wantTitles), len(d.Activities))
	}
	for i, a := range d.Activities {
		if a.Title != wantTitles[i] {
			t.Errorf("activity %d: got %q, want %q", i, a.Title, wantTitles[i])
		}
	}

	if err := svc.Delete(ctx, alice, p.ID, "Apollo"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Detail(ctx, alice, p.ID); !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("deleted project should be gone, got %v", err)
	}
}

func TestPostgresSessions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool := startPostgres(t)
	ctx := context.Background()

	users := user.NewStore(pool, time.Hour)
	alice := registerUser(t, users, "alice")
	if _, err := users.Create(ctx, user.CreateUserInput{Username: "alice", Password: "correct-horse"}); !errors.Is(err, user.ErrUsernameTaken) {
		t.Fatalf("expected duplicate username, got %v", err)
	}

	token, _, err := users.CreateSession(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	got, err := user.NewAuthAdapter(users).LookupSession(ctx, token)
	if err != nil || got.ID != alice.ID {
		t.Fatalf("lookup: %+v %v", got, err)
	}

	if err := users.DeleteSession(ctx, token); err != nil {
		t.Fatal(err)
	}
	if _, err := users.GetSessionUser(ctx, token); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
}
