package scenario

import (
	"net/http"
	"time"
)

// Endpoints of the HomeworkClick application.
const (
	PathHealth      = "/webhook/health"
	PathTest        = "/webhook/test"
	PathChat        = "/webhook/chat"
	PathMenuOptions = "/api/menu/opciones"
	PathMenuProcess = "/api/menu/procesar"
	PathRegister    = "/api/usuarios/registro"
	PathLogin       = "/api/usuarios/login"
)

const defaultPassword = "test123456"

var (
	chatMessages = []string{
		"Hola, ¿cómo estás?",
		"¿Puedes ayudarme con mi tarea?",
		"Explícame sobre programación",
		"¿Qué es Spring Boot?",
		"Necesito ayuda con Java",
		"¿Cómo funciona una base de datos?",
		"Dame un ejemplo de código",
		"¿Qué es un API REST?",
	}

	shortMessages = []string{
		"Hola",
		"¿Cómo estás?",
		"Ayuda",
		"Información",
		"Test",
		"Prueba",
		"¿Funciona?",
		"OK",
	}

	personalMessages = []string{
		"Hola, soy {{username}}",
		"¿Puedes ayudarme?",
		"Necesito información",
		"Gracias por tu ayuda",
	}

	menuOptions = []string{"1", "2", "3", "4", "5"}

	expectOK           = []int{http.StatusOK}
	expectOKOrRejected = []int{http.StatusOK, http.StatusBadRequest}
)

func get(name, path string, expect []int) RequestTemplate {
	return RequestTemplate{Name: name, Method: http.MethodGet, Path: path, Expect: expect}
}

func registerRequest(nombre, apellido string, expect []int) RequestTemplate {
	return RequestTemplate{
		Name:   "user registration",
		Method: http.MethodPost,
		Path:   PathRegister,
		Body: map[string]string{
			"username": "{{username}}",
			"email":    "{{username}}@test.com",
			"password": "{{password}}",
			"nombre":   nombre,
			"apellido": apellido,
		},
		Expect: expect,
	}
}

func loginRequest(expect []int) RequestTemplate {
	return RequestTemplate{
		Name:   "user login",
		Method: http.MethodPost,
		Path:   PathLogin,
		Body: map[string]string{
			"username": "{{username}}",
			"password": "{{password}}",
		},
		Expect:  expect,
		Capture: map[string]string{"token": "token"},
	}
}

func chatRequest(name, message string) RequestTemplate {
	return RequestTemplate{
		Name:   name,
		Method: http.MethodPost,
		Path:   PathChat,
		Body: map[string]string{
			"mensaje": message,
			"usuario": "{{username}}",
		},
		Expect: expectOK,
	}
}

func menuOptionsRequest() RequestTemplate {
	return get("menu options", PathMenuOptions+"?sessionId={{sessionID}}", expectOK)
}

func menuProcessRequest() RequestTemplate {
	return RequestTemplate{
		Name:   "menu option processing",
		Method: http.MethodPost,
		Path:   PathMenuProcess + "?optionId={{pick .Lists.options}}&sessionId={{sessionID}}",
		Auth:   true,
		// 400 is returned for option ids the menu does not offer.
		Expect: expectOKOrRejected,
	}
}

func task(weight int, reqs ...RequestTemplate) Task {
	return Task{Weight: weight, Requests: reqs}
}

// HomeworkClickUser registers, logs in and then exercises every endpoint.
func HomeworkClickUser() *Profile {
	return &Profile{
		Name:     "HomeworkClickUser",
		Wait:     Between(1*time.Second, 3*time.Second),
		Username: "test_user_{{randomString 8}}",
		Password: defaultPassword,
		Lists: map[string][]string{
			"messages": chatMessages,
			"options":  menuOptions,
		},
		OnStart: []RequestTemplate{
			registerRequest("Test User {{username}}", "Load Test", expectOK),
			loginRequest(expectOK),
		},
		Tasks: []Task{
			task(3, get("system health check", PathHealth, expectOK)),
			task(2, get("connectivity test", PathTest, expectOK)),
			task(5, chatRequest("AI chat", "{{pick .Lists.messages}}")),
			task(2, menuOptionsRequest()),
			task(1, menuProcessRequest()),
		},
	}
}

// WebhookOnlyUser hammers the chat webhook and the health endpoints without
// an account.
func WebhookOnlyUser() *Profile {
	return &Profile{
		Name:     "WebhookOnlyUser",
		Wait:     Between(500*time.Millisecond, 2*time.Second),
		Username: "webhook_user_{{randomInt 1000 10000}}",
		Lists: map[string][]string{
			"messages": shortMessages,
		},
		Tasks: []Task{
			task(10, chatRequest("intensive chat", "{{pick .Lists.messages}}")),
			task(3,
				get("system health check", PathHealth, expectOK),
				get("connectivity test", PathTest, expectOK),
			),
		},
	}
}

// MenuOnlyUser registers, logs in and navigates the menu. Its startup
// requests use the default classification.
func MenuOnlyUser() *Profile {
	return &Profile{
		Name:     "MenuOnlyUser",
		Wait:     Between(2*time.Second, 5*time.Second),
		Username: "menu_user_{{randomInt 1000 10000}}",
		Password: defaultPassword,
		Lists: map[string][]string{
			"options": menuOptions,
		},
		OnStart: []RequestTemplate{
			registerRequest("Menu Test User {{username}}", "Load Test", nil),
			loginRequest(nil),
		},
		Tasks: []Task{
			task(5, menuOptionsRequest()),
			task(3, menuProcessRequest()),
		},
	}
}

// BasicUser is the introductory example: fixed payloads, no account.
func BasicUser() *Profile {
	return &Profile{
		Name:     "BasicUser",
		Wait:     Between(1*time.Second, 3*time.Second),
		Username: "usuario_prueba",
		Tasks: []Task{
			task(1, get("health check", PathHealth, expectOK)),
			task(2, chatRequest("chat", "Hola, ¿cómo estás?")),
			task(1, get("menu options", PathMenuOptions, expectOK)),
		},
	}
}

// AdvancedUser derives its username from the target host, authenticates and
// sends a chat message chosen by its username.
func AdvancedUser() *Profile {
	return &Profile{
		Name:     "AdvancedUser",
		Wait:     Between(2*time.Second, 5*time.Second),
		Username: "usuario_{{host}}",
		Password: "password123",
		Lists: map[string][]string{
			"messages": personalMessages,
		},
		OnStart: []RequestTemplate{
			registerRequest("Usuario", "Prueba", expectOK),
			loginRequest(expectOK),
		},
		Tasks: []Task{
			task(3, RequestTemplate{
				Name:   "authenticated menu",
				Method: http.MethodGet,
				Path:   PathMenuOptions,
				Auth:   true,
				Expect: expectOK,
			}),
			task(2, chatRequest("personal chat", "{{hashPick .Username .Lists.messages}}")),
		},
	}
}

// Default returns a catalog with every built-in profile.
func Default() *Catalog {
	return NewCatalog(
		HomeworkClickUser(),
		WebhookOnlyUser(),
		MenuOnlyUser(),
		BasicUser(),
		AdvancedUser(),
	)
}
