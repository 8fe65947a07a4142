package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/config"
	"github.com/alecgard/huddle/internal/contact"
	"github.com/alecgard/huddle/internal/database"
	"github.com/alecgard/huddle/internal/project"
	"github.com/alecgard/huddle/internal/user"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo users, contacts and a public project",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const demoPassword = "huddle-demo"

var demoUsers = []user.CreateUserInput{
	{Username: "alice", Email: "alice@example.com", Name: "Alice Archer", Password: demoPassword},
	{Username: "bob", Email: "bob@example.com", Name: "Bob Baker", Password: demoPassword},
	{Username: "carol", Email: "carol@example.com", Name: "Carol Cole", Password: demoPassword},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := user.NewStore(pool, cfg.Session.Lifetime)
	if _, err := users.GetByUsername(ctx, demoUsers[0].Username); err == nil {
		slog.Info("demo data already exists, skipping seed")
		return nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("checking existing users: %w", err)
	}

	created := make([]*auth.User, 0, len(demoUsers))
	for _, in := range demoUsers {
		u, err := users.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("creating user %q: %w", in.Username, err)
		}
		slog.Info("created user", "username", u.Username, "id", u.ID)
		created = append(created, &auth.User{ID: u.ID, Username: u.Username, Email: u.Email, Name: u.Name})
	}
	alice, bob, carol := created[0], created[1], created[2]

	contacts := contact.NewStore(pool)
	bobContact, err := contacts.Create(ctx, alice.ID, contact.CreateContactInput{ContactUserID: bob.ID, Note: "Flight engineer"})
	if err != nil {
		return fmt.Errorf("creating contact: %w", err)
	}

	svc := project.NewService(project.NewTxRunner(pool), nil, cfg.Server.PublicURL)
	p, err := svc.Create(ctx, alice, project.CreateInput{
		Name:           "Apollo",
		Description:    "Demo project open for join requests.",
		StartDate:      "2025-01-01",
		EndDate:        "2025-12-31",
		IsPublic:       true,
		StakeholderIDs: []string{bobContact.ID},
	})
	if err != nil {
		return fmt.Errorf("creating demo project: %w", err)
	}
	if _, err := svc.CreateTask(ctx, alice, p.ID, project.CreateTaskInput{
		Title:      "Draft mission plan",
		DueDate:    "2025-02-01",
		AssignedTo: []string{bobContact.ID},
	}); err != nil {
		return fmt.Errorf("creating demo task: %w", err)
	}
	if _, err := svc.RequestJoin(ctx, carol, p.ID); err != nil {
		return fmt.Errorf("filing demo join request: %w", err)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Users:    alice, bob, carol (password %q)\n", demoPassword)
	fmt.Printf("Project:  %s (%s), carol has a pending join request\n", p.Name, p.ID)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST -d '{\"username\":\"alice\",\"password\":\"%s\"}' http://localhost:8080/api/v1/auth/login\n", demoPassword)
	fmt.Printf("  curl -H 'Authorization: Bearer <token>' http://localhost:8080/api/v1/projects/%s\n", p.ID)

	return nil
}
