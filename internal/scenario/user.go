package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSkipped is returned by Execute when a request needs a token the session
// does not have yet. No request is sent and nothing is recorded.
var ErrSkipped = errors.New("skipped: not authenticated")

// User is one virtual user executing a profile.
type User struct {
	ID      string
	Profile *Profile
	Session Session

	host   string
	lists  map[string][]string
	client Requester
	engine *TemplateEngine

	totalWeight int
}

// NewUser renders the profile's username and prepares a fresh session.
func NewUser(p *Profile, client Requester, engine *TemplateEngine, host string) (*User, error) {
	u := &User{
		ID:      uuid.New().String(),
		Profile: p,
		host:    host,
		client:  client,
		engine:  engine,
	}
	u.Session = Session{Password: p.Password, Vars: make(map[string]string)}
	u.lists = p.Lists

	name, err := engine.Render(p.Username, u.data())
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", p.Name, err)
	}
	u.Session.Username = name

	// List entries may refer to the session, so they are rendered per user.
	lists, err := u.renderLists()
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", p.Name, err)
	}
	u.lists = lists

	for _, t := range p.Tasks {
		u.totalWeight += t.Weight
	}
	return u, nil
}

func (u *User) renderLists() (map[string][]string, error) {
	out := make(map[string][]string, len(u.Profile.Lists))
	data := u.data()
	for name, list := range u.Profile.Lists {
		rendered := make([]string, len(list))
		for i, v := range list {
			val, err := u.engine.Render(v, data)
			if err != nil {
				return nil, err
			}
			rendered[i] = val
		}
		out[name] = rendered
	}
	return out, nil
}

func (u *User) data() TemplateData {
	return TemplateData{
		Username: u.Session.Username,
		Password: u.Session.Password,
		Token:    u.Session.Token,
		Host:     hostname(u.host),
		UserID:   u.ID,
		Lists:    u.lists,
		Vars:     u.Session.Vars,
	}
}

// Run starts the user and then executes weighted tasks with think time in
// between until ctx is done.
func (u *User) Run(ctx context.Context) error {
	if err := u.Start(ctx); err != nil {
		return err
	}
	for {
		task := u.NextTask()
		if _, err := u.Execute(ctx, task); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := u.Think(ctx); err != nil {
			return err
		}
	}
}

// Start runs the startup sequence in order. A failed step is recorded by the
// requester and the sequence carries on; only cancellation stops it.
func (u *User) Start(ctx context.Context) error {
	for i := range u.Profile.OnStart {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := u.send(ctx, &u.Profile.OnStart[i]); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return ctx.Err()
}

// NextTask picks a task at random, weighted by Task.Weight.
func (u *User) NextTask() *Task {
	tasks := u.Profile.Tasks
	if u.totalWeight <= 0 {
		return &tasks[rand.Intn(len(tasks))]
	}
	n := rand.Intn(u.totalWeight)
	for i := range tasks {
		n -= tasks[i].Weight
		if n < 0 {
			return &tasks[i]
		}
	}
	return &tasks[len(tasks)-1]
}

// Execute runs one task: it picks one of the task's requests, renders it and
// sends it.
func (u *User) Execute(ctx context.Context, task *Task) (*Response, error) {
	t := &task.Requests[0]
	if len(task.Requests) > 1 {
		t = &task.Requests[rand.Intn(len(task.Requests))]
	}
	return u.send(ctx, t)
}

// Think sleeps for the profile's wait time.
func (u *User) Think(ctx context.Context) error {
	d := u.Profile.Wait.Next()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (u *User) send(ctx context.Context, t *RequestTemplate) (*Response, error) {
	if t.Auth && !u.Session.Authenticated() {
		return nil, ErrSkipped
	}
	req, err := u.Render(t)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.Do(ctx, req)
	if err != nil {
		return resp, err
	}
	if resp != nil && resp.Status == http.StatusOK && len(t.Capture) > 0 {
		u.capture(t.Capture, resp.Body)
	}
	return resp, nil
}

// Render builds the request for t from the current session.
func (u *User) Render(t *RequestTemplate) (*Request, error) {
	data := u.data()

	path, err := u.engine.Render(t.Path, data)
	if err != nil {
		return nil, err
	}
	req := &Request{
		Name:   t.Label(),
		Method: strings.ToUpper(t.Method),
		Path:   path,
		Header: make(http.Header),
		Expect: t.Expect,
	}

	for k, v := range t.Headers {
		val, err := u.engine.Render(v, data)
		if err != nil {
			return nil, err
		}
		req.Header.Set(k, val)
	}
	if t.Auth {
		req.Header.Set("Authorization", "Bearer "+u.Session.Token)
	}

	if len(t.Body) > 0 {
		body := make(map[string]string, len(t.Body))
		for k, v := range t.Body {
			val, err := u.engine.Render(v, data)
			if err != nil {
				return nil, err
			}
			body[k] = val
		}
		req.Body, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body for %s: %w", req.Name, err)
		}
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (u *User) capture(fields map[string]string, body []byte) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return
	}
	for name, field := range fields {
		v, ok := payload[field].(string)
		if !ok || v == "" {
			continue
		}
		if name == "token" {
			u.Session.Token = v
			continue
		}
		u.Session.Vars[name] = v
	}
}

// hostname strips scheme and port: "http://localhost:8080" becomes "localhost".
func hostname(host string) string {
	h := host
	if i := strings.Index(h, "//"); i >= 0 {
		h = h[i+2:]
	}
	if i := strings.IndexAny(h, ":/"); i >= 0 {
		h = h[:i]
	}
	return h
}
