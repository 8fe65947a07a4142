package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alecgard/huddle/internal/contact"
	"github.com/alecgard/huddle/internal/database"
	"github.com/jackc/pgx/v5"
)

const selectProject = `SELECT p.id, p.name, p.description, p.start_date, p.end_date, p.is_public,
	p.status, p.owner_id, u.username, p.created_at,
	(SELECT count(*) FROM project_tasks t WHERE t.project_id = p.id),
	(SELECT count(*) FROM project_tasks t WHERE t.project_id = p.id AND t.is_complete)
	FROM projects p JOIN users u ON u.id = p.owner_id`

const selectJoinRequest = `SELECT jr.id, jr.project_id, jr.requesting_user_id, u.username, jr.status, jr.created_at
	FROM project_join_requests jr JOIN users u ON u.id = jr.requesting_user_id`

const selectTask = `SELECT id, project_id, title, description, due_date, is_complete, created_at, updated_at
	FROM project_tasks`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Store is the Postgres implementation of Repository.
type Store struct {
	db database.DBTX
}

// NewStore creates a project store over a pool or a transaction.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func scanProject(row pgx.Row) (*Project, error) {
	p := &Project{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.StartDate, &p.EndDate, &p.IsPublic,
		&p.Status, &p.OwnerID, &p.OwnerUsername, &p.CreatedAt, &p.TotalTasks, &p.CompletedTasks)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanJoinRequest(row pgx.Row) (*JoinRequest, error) {
	jr := &JoinRequest{}
	err := row.Scan(&jr.ID, &jr.ProjectID, &jr.RequestingUserID, &jr.RequestingUsername, &jr.Status, &jr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return jr, nil
}

func scanTask(row pgx.Row) (*Task, error) {
	t := &Task{}
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.DueDate, &t.IsComplete, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Insert stores a new project row and fills in its id and creation time.
func (s *Store) Insert(ctx context.Context, p *Project) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO projects (name, description, start_date, end_date, is_public, status, owner_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		p.Name, p.Description, p.StartDate, p.EndDate, p.IsPublic, p.Status, p.OwnerID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// Get returns a project with its owner, stakeholders and task counts.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	p, err := scanProject(s.db.QueryRow(ctx, selectProject+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	p.Stakeholders, err = s.stakeholders(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) stakeholders(ctx context.Context, projectID string) ([]*contact.Contact, error) {
	rows, err := s.db.Query(ctx,
		contact.Select+` JOIN project_stakeholders ps ON ps.contact_id = c.id
		 WHERE ps.project_id = $1 ORDER BY u.username`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing stakeholders: %w", err)
	}
	return contact.CollectRows(rows)
}

// Save writes every mutable column of p.
func (s *Store) Save(ctx context.Context, p *Project) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE projects
		 SET name = $1, description = $2, start_date = $3, end_date = $4, is_public = $5, status = $6
		 WHERE id = $7`,
		p.Name, p.Description, p.StartDate, p.EndDate, p.IsPublic, p.Status, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStakeholders replaces the stakeholder set of a project.
func (s *Store) SetStakeholders(ctx context.Context, projectID string, contactIDs []string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM project_stakeholders WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("clearing stakeholders: %w", err)
	}
	if len(contactIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO project_stakeholders (project_id, contact_id)
		 SELECT $1, unnest($2::uuid[])
		 ON CONFLICT DO NOTHING`,
		projectID, contactIDs,
	)
	if err != nil {
		return fmt.Errorf("setting stakeholders: %w", err)
	}
	return nil
}

// AddStakeholder links a contact to a project. Existing links are kept.
func (s *Store) AddStakeholder(ctx context.Context, projectID, contactID string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO project_stakeholders (project_id, contact_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		projectID, contactID,
	)
	if err != nil {
		return fmt.Errorf("adding stakeholder: %w", err)
	}
	return nil
}

// RemoveStakeholder unlinks a contact from a project and reports whether a
// link existed. The contact row itself is kept.
func (s *Store) RemoveStakeholder(ctx context.Context, projectID, contactID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM project_stakeholders WHERE project_id = $1 AND contact_id = $2`,
		projectID, contactID,
	)
	if err != nil {
		return false, fmt.Errorf("removing stakeholder: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns projects matching f, newest start date first. Stakeholders
// are not loaded.
func (s *Store) List(ctx context.Context, actorID string, f ListFilter, limit, offset int) ([]*Project, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch f.View {
	case ViewPublic:
		where = append(where, "p.is_public")
	case ViewAll:
		a := arg(actorID)
		where = append(where, `(p.is_public OR p.owner_id = `+a+` OR EXISTS (
			SELECT 1 FROM project_stakeholders ps JOIN contacts c ON c.id = ps.contact_id
			WHERE ps.project_id = p.id AND c.owner_id = p.owner_id AND c.contact_user_id = `+a+`))`)
	default:
		where = append(where, "p.owner_id = "+arg(actorID))
	}
	if f.Query != "" {
		where = append(where, "p.name ILIKE "+arg("%"+likeEscaper.Replace(f.Query)+"%"))
	}
	if f.Status != "" {
		where = append(where, "p.status = "+arg(string(f.Status)))
	}

	query := selectProject + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY p.start_date DESC, p.created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []*Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Delete removes a project and its dependent rows in dependency order.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	steps := []struct {
		what  string
		query string
	}{
		{"task assignments", `DELETE FROM project_task_assignees
			WHERE task_id IN (SELECT id FROM project_tasks WHERE project_id = $1)`},
		{"tasks", `DELETE FROM project_tasks WHERE project_id = $1`},
		{"join requests", `DELETE FROM project_join_requests WHERE project_id = $1`},
		{"stakeholders", `DELETE FROM project_stakeholders WHERE project_id = $1`},
		{"activities", `DELETE FROM project_activities WHERE project_id = $1`},
	}
	for _, step := range steps {
		if _, err := s.db.Exec(ctx, step.query, projectID); err != nil {
			return fmt.Errorf("deleting project %s: %w", step.what, err)
		}
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrCreateJoinRequest returns the user's request for a project, creating
// a PENDING one if none exists. The bool reports whether it was created.
func (s *Store) GetOrCreateJoinRequest(ctx context.Context, projectID, userID string) (*JoinRequest, bool, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`INSERT INTO project_join_requests (project_id, requesting_user_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (project_id, requesting_user_id) DO NOTHING
		 RETURNING id`,
		projectID, userID, JoinPending,
	).Scan(&id)
	created := true
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
	} else if err != nil {
		return nil, false, fmt.Errorf("creating join request: %w", err)
	}

	jr, err := s.FindJoinRequest(ctx, projectID, userID)
	if err != nil {
		return nil, false, err
	}
	return jr, created, nil
}

// GetJoinRequest returns a join request by id and locks its row for the
// rest of the transaction.
func (s *Store) GetJoinRequest(ctx context.Context, id string) (*JoinRequest, error) {
	jr, err := scanJoinRequest(s.db.QueryRow(ctx,
		selectJoinRequest+` WHERE jr.id = $1 FOR UPDATE OF jr`, id))
	if err != nil {
		return nil, fmt.Errorf("getting join request: %w", err)
	}
	return jr, nil
}

// FindJoinRequest returns the user's request for a project.
func (s *Store) FindJoinRequest(ctx context.Context, projectID, userID string) (*JoinRequest, error) {
	jr, err := scanJoinRequest(s.db.QueryRow(ctx,
		selectJoinRequest+` WHERE jr.project_id = $1 AND jr.requesting_user_id = $2`,
		projectID, userID))
	if err != nil {
		return nil, fmt.Errorf("finding join request: %w", err)
	}
	return jr, nil
}

// SetJoinRequestStatus moves a join request to status.
func (s *Store) SetJoinRequestStatus(ctx context.Context, id string, status JoinRequestStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE project_join_requests SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("updating join request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJoinRequests returns a project's join requests, oldest first. An
// empty status lists all of them.
func (s *Store) ListJoinRequests(ctx context.Context, projectID string, status JoinRequestStatus) ([]*JoinRequest, error) {
	query := selectJoinRequest + ` WHERE jr.project_id = $1`
	args := []any{projectID}
	if status != "" {
		query += ` AND jr.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY jr.created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing join requests: %w", err)
	}
	defer rows.Close()

	requests := []*JoinRequest{}
	for rows.Next() {
		jr, err := scanJoinRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning join request row: %w", err)
		}
		requests = append(requests, jr)
	}
	return requests, rows.Err()
}

// InsertTask stores a new task and fills in its id and timestamps.
func (s *Store) InsertTask(ctx context.Context, t *Task) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO project_tasks (project_id, title, description, due_date, is_complete)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		t.ProjectID, t.Title, t.Description, t.DueDate, t.IsComplete,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetTask returns a task with its assignees.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, selectTask+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	t.AssignedTo, err = s.assignees(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) assignees(ctx context.Context, taskID string) ([]*contact.Contact, error) {
	rows, err := s.db.Query(ctx,
		contact.Select+` JOIN project_task_assignees ta ON ta.contact_id = c.id
		 WHERE ta.task_id = $1 ORDER BY u.username`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing task assignees: %w", err)
	}
	return contact.CollectRows(rows)
}

// SaveTask writes every mutable column of t and bumps updated_at.
func (s *Store) SaveTask(ctx context.Context, t *Task) error {
	err := s.db.QueryRow(ctx,
		`UPDATE project_tasks
		 SET title = $1, description = $2, due_date = $3, is_complete = $4, updated_at = now()
		 WHERE id = $5
		 RETURNING updated_at`,
		t.Title, t.Description, t.DueDate, t.IsComplete, t.ID,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

// SetTaskAssignees replaces the assignee set of a task.
func (s *Store) SetTaskAssignees(ctx context.Context, taskID string, contactIDs []string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM project_task_assignees WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("clearing task assignees: %w", err)
	}
	if len(contactIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO project_task_assignees (task_id, contact_id)
		 SELECT $1, unnest($2::uuid[])
		 ON CONFLICT DO NOTHING`,
		taskID, contactIDs,
	)
	if err != nil {
		return fmt.Errorf("setting task assignees: %w", err)
	}
	return nil
}

// ListTasks returns a project's tasks ordered by due date.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]*Task, error) {
	rows, err := s.db.Query(ctx,
		selectTask+` WHERE project_id = $1 ORDER BY due_date, created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	// Assignees are read after rows is closed; a transaction connection
	// cannot run a second query while one is still streaming.
	for _, t := range tasks {
		if t.AssignedTo, err = s.assignees(ctx, t.ID); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// AddActivity appends an activity and fills in its id and timestamp.
func (s *Store) AddActivity(ctx context.Context, a *Activity) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO project_activities (project_id, title, description, created_by, timestamp)
		 VALUES ($1, $2, $3, $4, clock_timestamp())
		 RETURNING id, timestamp`,
		a.ProjectID, a.Title, a.Description, nullIfEmpty(a.CreatedBy),
	).Scan(&a.ID, &a.Timestamp)
	if err != nil {
		return fmt.Errorf("adding activity: %w", err)
	}
	return nil
}

// ListActivities returns a project's activity log, newest first.
func (s *Store) ListActivities(ctx context.Context, projectID string) ([]*Activity, error) {
	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.project_id, a.title, a.description,
		        COALESCE(a.created_by::text, ''), COALESCE(u.username, ''), a.timestamp
		 FROM project_activities a LEFT JOIN users u ON u.id = a.created_by
		 WHERE a.project_id = $1
		 ORDER BY a.timestamp DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	activities := []*Activity{}
	for rows.Next() {
		a := &Activity{}
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Title, &a.Description, &a.CreatedBy, &a.CreatedByUsername, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
