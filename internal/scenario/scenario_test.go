package scenario

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		expect []int
		status int
		err    error
		ok     bool
		reason string
	}{
		{"200 allowed", []int{200}, 200, nil, true, ""},
		{"503 not allowed", []int{200}, 503, nil, false, "unexpected status 503"},
		{"400 allowed for menu processing", []int{200, 400}, 400, nil, true, ""},
		{"401 rejected for menu processing", []int{200, 400}, 401, nil, false, "unexpected status 401"},
		{"default accepts redirects", nil, 302, nil, true, ""},
		{"default rejects 404", nil, 404, nil, false, "unexpected status 404"},
		{"transport error", []int{200}, 0, errors.New("connection refused"), false, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Classify(tt.expect, tt.status, tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestBuiltinClassification(t *testing.T) {
	c := Default()
	p, err := c.Lookup("HomeworkClickUser")
	require.NoError(t, err)

	byPath := make(map[string][]int)
	for _, task := range p.Tasks {
		for _, r := range task.Requests {
			path, _, _ := strings.Cut(r.Path, "?")
			byPath[path] = r.Expect
		}
	}

	for _, path := range []string{PathHealth, PathTest, PathChat, PathMenuOptions} {
		ok, _ := Classify(byPath[path], http.StatusOK, nil)
		assert.True(t, ok, path)
		for _, status := range []int{201, 400, 404, 500} {
			ok, _ := Classify(byPath[path], status, nil)
			assert.False(t, ok, "%s %d", path, status)
		}
	}

	for _, status := range []int{200, 400} {
		ok, _ := Classify(byPath[PathMenuProcess], status, nil)
		assert.True(t, ok, "procesar %d", status)
	}
	ok, _ := Classify(byPath[PathMenuProcess], 500, nil)
	assert.False(t, ok)
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"HomeworkClickUser", "WebhookOnlyUser", "MenuOnlyUser", "BasicUser", "AdvancedUser"}, c.Names())
	require.NoError(t, c.Validate(NewTemplateEngine()))

	_, err := c.Lookup("Nope")
	assert.ErrorIs(t, err, ErrUnknownProfile)

	selected, err := c.Select("MenuOnlyUser", "BasicUser")
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "MenuOnlyUser", selected[0].Name)

	all, err := c.Select()
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestProfileValidate(t *testing.T) {
	engine := NewTemplateEngine()
	valid := func() *Profile {
		return &Profile{
			Name: "P",
			Wait: Between(time.Second, 2*time.Second),
			Tasks: []Task{
				{Weight: 1, Requests: []RequestTemplate{{Method: "GET", Path: "/"}}},
			},
		}
	}
	require.NoError(t, valid().Validate(engine))

	tests := map[string]func(p *Profile){
		"no name":       func(p *Profile) { p.Name = "" },
		"no tasks":      func(p *Profile) { p.Tasks = nil },
		"zero weight":   func(p *Profile) { p.Tasks[0].Weight = 0 },
		"wait reversed": func(p *Profile) { p.Wait = Between(2*time.Second, time.Second) },
		"no method":     func(p *Profile) { p.Tasks[0].Requests[0].Method = "" },
		"bad template":  func(p *Profile) { p.Tasks[0].Requests[0].Path = "/{{nope}}" },
		"no requests":   func(p *Profile) { p.Tasks[0].Requests = nil },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := valid()
			mutate(p)
			assert.ErrorIs(t, p.Validate(engine), ErrInvalidProfile)
		})
	}
}

func TestTemplateEngine_Render(t *testing.T) {
	e := NewTemplateEngine()
	data := TemplateData{
		Username: "menu_user_1234",
		Password: "secret",
		Token:    "tok",
		Host:     "localhost",
		Lists:    map[string][]string{"options": {"3"}},
	}

	out, err := e.Render("{{username}}@test.com", data)
	require.NoError(t, err)
	assert.Equal(t, "menu_user_1234@test.com", out)

	out, err = e.Render("optionId={{pick .Lists.options}}", data)
	require.NoError(t, err)
	assert.Equal(t, "optionId=3", out)

	out, err = e.Render("{{pick .Lists.missing}}", data)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = e.Render("{{randomChoice \"a\" \"b\"}}", data)
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, out)

	out, err = e.Render("{{randomString 8}}", data)
	require.NoError(t, err)
	assert.Regexp(t, `^[a-z0-9]{8}$`, out)

	out, err = e.Render("{{uuid}}", data)
	require.NoError(t, err)
	assert.Len(t, out, 36)

	out, err = e.Render("plain", data)
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	_, err = e.Render("{{", data)
	assert.Error(t, err)
}

func TestTemplateEngine_ConcurrentRender(t *testing.T) {
	e := NewTemplateEngine()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				out, err := e.Render("{{sessionID}}", TemplateData{})
				assert.NoError(t, err)
				assert.True(t, strings.HasPrefix(out, "session_"))
			}
		}()
	}
	wg.Wait()
}

func TestTemplateEngine_RandomLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.txt")
	require.NoError(t, os.WriteFile(path, []byte("uno\n\n dos \n"), 0o644))

	e := NewTemplateEngine()
	for i := 0; i < 10; i++ {
		out, err := e.Render(`{{randomLine "`+path+`"}}`, TemplateData{})
		require.NoError(t, err)
		assert.Contains(t, []string{"uno", "dos"}, out)
	}

	_, err := e.Render(`{{randomLine "`+filepath.Join(dir, "missing")+`"}}`, TemplateData{})
	assert.Error(t, err)
}

func TestHashPick_Stable(t *testing.T) {
	list := []string{"a", "b", "c", "d"}
	first := hashPick("usuario_localhost", list)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, hashPick("usuario_localhost", list))
	}
	assert.Empty(t, hashPick("x", nil))
}

const profilesYAML = `
profiles:
  - name: ChatBurstUser
    weight: 2
    wait: {min: 100ms, max: 500ms}
    username: "burst_{{randomInt 1000 10000}}"
    lists:
      messages: [Hola, Ayuda]
    tasks:
      - weight: 1
        requests:
          - name: chat
            method: POST
            path: /webhook/chat
            expect: [200]
            body:
              mensaje: "{{pick .Lists.messages}}"
              usuario: "{{username}}"
`

func TestDecode(t *testing.T) {
	c, err := Decode(strings.NewReader(profilesYAML), NewTemplateEngine())
	require.NoError(t, err)

	p, err := c.Lookup("ChatBurstUser")
	require.NoError(t, err)
	assert.Equal(t, 2, p.SpawnWeight())
	assert.Equal(t, 100*time.Millisecond, p.Wait.Min)
	assert.Equal(t, 500*time.Millisecond, p.Wait.Max)
	require.Len(t, p.Tasks, 1)
	assert.Equal(t, []int{200}, p.Tasks[0].Requests[0].Expect)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader(""), NewTemplateEngine())
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = Decode(strings.NewReader("profiles:\n  - name: X\n    tasks: []\n"), NewTemplateEngine())
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = Decode(strings.NewReader("profiles:\n  - name: X\n    bogus: 1\n"), NewTemplateEngine())
	assert.Error(t, err)
}

func TestEncodeDecodeBuiltins(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Default()))

	c, err := Decode(&buf, NewTemplateEngine())
	require.NoError(t, err)
	assert.Equal(t, Default().Names(), c.Names())

	p, err := c.Lookup("WebhookOnlyUser")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, p.Wait.Min)
	assert.Len(t, p.Tasks[1].Requests, 2)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0o644))

	c, err := LoadFile(path, NewTemplateEngine())
	require.NoError(t, err)

	merged := Default()
	merged.Merge(c)
	assert.Len(t, merged.Names(), 6)

	_, err = LoadFile(filepath.Join(t.TempDir(), "none.yaml"), NewTemplateEngine())
	assert.Error(t, err)
}
