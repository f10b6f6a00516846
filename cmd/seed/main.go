// seed loads users, SMTP settings and a few demo tasks and bugs from a YAML
// file into the local dev database. Re-running it is safe.
// Run: go run ./cmd/seed [-f seed/dev.yaml]
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/email"
	"github.com/ErlanBelekov/taskboard/internal/infrastructure/postgres"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Users []seedUser `yaml:"users" validate:"required,min=1,dive"`
	SMTP  *seedSMTP  `yaml:"smtp"`
	Tasks []seedTask `yaml:"tasks" validate:"dive"`
	Bugs  []seedBug  `yaml:"bugs"  validate:"dive"`
}

type seedUser struct {
	Email    string `yaml:"email"    validate:"required,email"`
	Name     string `yaml:"name"     validate:"required"`
	Password string `yaml:"password" validate:"required,min=8,max=72"`
	Role     string `yaml:"role"     validate:"required,oneof=manager developer"`
	Status   string `yaml:"status"   validate:"omitempty,oneof=active inactive"`
	Avatar   string `yaml:"avatar"`
}

type seedSMTP struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Encryption string `yaml:"encryption"`
	FromEmail  string `yaml:"from_email"`
	FromName   string `yaml:"from_name"`
}

// DueIn is relative to the moment the seed runs, so the deadline scan always
// has something to find.
type seedTask struct {
	Name      string        `yaml:"name"       validate:"required"`
	Status    string        `yaml:"status"     validate:"omitempty,oneof=pending in_progress completed cancelled"`
	CreatedBy string        `yaml:"created_by" validate:"required,email"`
	Assignees []string      `yaml:"assignees"  validate:"dive,email"`
	DueIn     time.Duration `yaml:"due_in"`
}

type seedBug struct {
	Task      string        `yaml:"task"       validate:"required"`
	Name      string        `yaml:"name"       validate:"required"`
	Status    string        `yaml:"status"     validate:"omitempty,oneof=open in_progress resolved closed"`
	OverdueBy time.Duration `yaml:"overdue_by"`
}

func main() {
	path := flag.String("f", "seed/dev.yaml", "seed file")
	flag.Parse()

	seed, err := loadSeed(*path)
	if err != nil {
		log.Fatalf("seed file: %v", err)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ids := make(map[string]string, len(seed.Users))
	for _, u := range seed.Users {
		id, err := upsertUser(ctx, pool, u)
		if err != nil {
			log.Fatalf("user %s: %v", u.Email, err)
		}
		ids[u.Email] = id
	}

	settings := seed.SMTP.settings()
	for k, v := range settings {
		if _, err := pool.Exec(ctx, `
			INSERT INTO settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, k, v); err != nil {
			log.Fatalf("setting %s: %v", k, err)
		}
	}

	now := time.Now()
	taskIDs := make(map[string]string, len(seed.Tasks))
	for _, t := range seed.Tasks {
		id, err := upsertTask(ctx, pool, t, ids, now)
		if err != nil {
			log.Fatalf("task %q: %v", t.Name, err)
		}
		taskIDs[t.Name] = id
	}
	for _, b := range seed.Bugs {
		taskID, ok := taskIDs[b.Task]
		if !ok {
			log.Fatalf("bug %q: unknown task %q", b.Name, b.Task)
		}
		if err := upsertBug(ctx, pool, taskID, b, now); err != nil {
			log.Fatalf("bug %q: %v", b.Name, err)
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	for _, u := range seed.Users {
		fmt.Printf("  %-10s %-28s %s\n", u.Role, u.Email, ids[u.Email])
	}
	fmt.Printf("\n  Settings written: %d\n", len(settings))
	fmt.Printf("  Tasks: %d  Bugs: %d\n", len(seed.Tasks), len(seed.Bugs))
	fmt.Println()
	fmt.Println("Try it:")
	fmt.Println()
	fmt.Printf("  curl -s -c jar -X POST http://localhost:8080/auth/login \\\n")
	fmt.Printf("    -H 'Content-Type: application/json' \\\n")
	fmt.Printf("    -d '{\"email\":\"%s\",\"password\":\"%s\",\"remember_me\":true}'\n", seed.Users[0].Email, seed.Users[0].Password)
	fmt.Println("  go run ./cmd/scan deadline")
	fmt.Println("  curl -s -b jar http://localhost:8080/notifications")
}

func loadSeed(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSeed(raw)
}

func parseSeed(raw []byte) (*seedFile, error) {
	var s seedFile
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := validator.New().Struct(&s); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &s, nil
}

// settings flattens the SMTP block into settings rows. The password is stored
// base64-encoded, which is how the server reads it back.
func (s *seedSMTP) settings() map[string]string {
	if s == nil || s.Host == "" {
		return nil
	}
	out := map[string]string{email.SettingHost: s.Host}
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	if s.Port != 0 {
		out[email.SettingPort] = fmt.Sprint(s.Port)
	}
	put(email.SettingUsername, s.Username)
	if s.Password != "" {
		out[email.SettingPassword] = base64.StdEncoding.EncodeToString([]byte(s.Password))
	}
	put(email.SettingEncryption, s.Encryption)
	put(email.SettingFromEmail, s.FromEmail)
	put(email.SettingFromName, s.FromName)
	return out
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, u seedUser) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	status := u.Status
	if status == "" {
		status = "active"
	}

	var id string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, role, status, avatar)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			name          = EXCLUDED.name,
			role          = EXCLUDED.role,
			status        = EXCLUDED.status,
			avatar        = EXCLUDED.avatar,
			updated_at    = NOW()
		RETURNING id`,
		u.Email, string(hash), u.Name, u.Role, status, u.Avatar,
	).Scan(&id)
	return id, err
}

func upsertTask(ctx context.Context, pool *pgxpool.Pool, t seedTask, users map[string]string, now time.Time) (string, error) {
	creator, ok := users[t.CreatedBy]
	if !ok {
		return "", fmt.Errorf("unknown creator %s", t.CreatedBy)
	}
	status := t.Status
	if status == "" {
		status = "pending"
	}
	end := now.Add(t.DueIn)

	var id string
	err := pool.QueryRow(ctx,
		`SELECT id FROM tasks WHERE name = $1 AND created_by = $2`, t.Name, creator,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = pool.QueryRow(ctx, `
			INSERT INTO tasks (name, status, end_datetime, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING id`, t.Name, status, end, creator,
		).Scan(&id)
	case err == nil:
		_, err = pool.Exec(ctx,
			`UPDATE tasks SET status = $2, end_datetime = $3 WHERE id = $1`, id, status, end)
	}
	if err != nil {
		return "", err
	}

	for _, a := range t.Assignees {
		uid, ok := users[a]
		if !ok {
			return "", fmt.Errorf("unknown assignee %s", a)
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, id, uid); err != nil {
			return "", err
		}
	}
	return id, nil
}

func upsertBug(ctx context.Context, pool *pgxpool.Pool, taskID string, b seedBug, now time.Time) error {
	status := b.Status
	if status == "" {
		status = "open"
	}
	end := now.Add(-b.OverdueBy)

	tag, err := pool.Exec(ctx,
		`UPDATE bugs SET status = $3, end_datetime = $4 WHERE task_id = $1 AND name = $2`,
		taskID, b.Name, status, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO bugs (task_id, name, status, end_datetime) VALUES ($1, $2, $3, $4)`,
		taskID, b.Name, status, end)
	return err
}
