package scenario

import (
	"bufio"
	"bytes"
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

// TemplateEngine renders request templates. Parsed templates and files read
// by randomLine are cached; the engine is safe for concurrent use.
type TemplateEngine struct {
	mu        sync.RWMutex
	cache     map[string]*template.Template
	fileCache map[string][]string
	funcMap   template.FuncMap
}

// TemplateData is passed to the execution context
type TemplateData struct {
	Username string
	Password string
	Token    string
	Host     string
	UserID   string
	Lists    map[string][]string
	Vars     map[string]string
}

// NewTemplateEngine initializes the engine and its functions
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		cache:     make(map[string]*template.Template),
		fileCache: make(map[string][]string),
	}

	e.funcMap = template.FuncMap{
		"randomInt":    randomInt,
		"randomString": randomString,
		"randomChoice": randomChoice,
		"randomLine":   e.randomLine,
		"pick":         pick,
		"hashPick":     hashPick,
		"sessionID":    sessionID,
		"uuid":         randomUUID,
	}

	return e
}

// Preprocess converts shorthand variables like {{username}} to field access {{.Username}}.
func (e *TemplateEngine) Preprocess(input string) string {
	r := strings.NewReplacer(
		"{{username}}", "{{.Username}}",
		"{{password}}", "{{.Password}}",
		"{{token}}", "{{.Token}}",
		"{{host}}", "{{.Host}}",
		"{{userID}}", "{{.UserID}}",
	)
	return r.Replace(input)
}

// Parse returns the cached template for text, parsing it on first use.
func (e *TemplateEngine) Parse(text string) (*template.Template, error) {
	e.mu.RLock()
	t, ok := e.cache[text]
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := template.New("request").Funcs(e.funcMap).Option("missingkey=zero").Parse(e.Preprocess(text))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", text, err)
	}

	e.mu.Lock()
	e.cache[text] = t
	e.mu.Unlock()
	return t, nil
}

// Render parses (or reuses) text and executes it with data.
func (e *TemplateEngine) Render(text string, data TemplateData) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	t, err := e.Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", text, err)
	}
	return buf.String(), nil
}

// --- Functions ---

// randomInt returns a value in [min, max).
func randomInt(min, max int) int {
	if max <= min {
		return min
	}
	return rand.Intn(max-min) + min
}

func randomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(b)
}

func randomUUID() string {
	return uuid.New().String()
}

func randomChoice(choices ...string) string {
	return pick(choices)
}

func pick(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[rand.Intn(len(list))]
}

// hashPick chooses from list by hashing key, so the same key always gets the
// same element.
func hashPick(key string, list []string) string {
	if len(list) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return list[h.Sum32()%uint32(len(list))]
}

// sessionID formats a menu session identifier, session_1000 to session_9999.
func sessionID() string {
	return fmt.Sprintf("session_%d", randomInt(1000, 10000))
}

func (e *TemplateEngine) randomLine(filename string) (string, error) {
	e.mu.RLock()
	lines, ok := e.fileCache[filename]
	e.mu.RUnlock()

	if ok {
		return pick(lines), nil
	}

	// Load file (Lazy load)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Double check
	if lines, ok = e.fileCache[filename]; ok {
		return pick(lines), nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file '%s': %w", filename, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var loaded []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			loaded = append(loaded, line)
		}
	}

	e.fileCache[filename] = loaded
	return pick(loaded), nil
}
