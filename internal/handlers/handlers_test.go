package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/apiserver/internal/services"
	"github.com/messagely/apiserver/internal/store"
	"github.com/messagely/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// memStore is an in-memory stand-in for the Postgres repositories, used to
// exercise handler flows without a database.
type memStore struct {
	mu       sync.Mutex
	users    map[string]types.User
	messages map[int64]types.Message
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]types.User),
		messages: make(map[int64]types.Message),
	}
}

func (m *memStore) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return types.User{}, store.ErrDuplicate
	}
	m.users[user.Username] = user
	return user, nil
}

func (m *memStore) GetByUsername(ctx context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[username]
	if !exists {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memStore) List(ctx context.Context) ([]types.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]types.UserSummary, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user.Summary())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *memStore) TouchLogin(ctx context.Context, username string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[username]
	if !exists {
		return store.ErrNotFound
	}
	user.LastLoginAt = at
	m.users[username] = user
	return nil
}

func (m *memStore) MessagesFrom(ctx context.Context, username string) ([]types.OutboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := make([]types.OutboundMessage, 0)
	for _, msg := range m.sortedMessages() {
		if msg.FromUsername != username {
			continue
		}
		messages = append(messages, types.OutboundMessage{
			ID:     msg.ID,
			Body:   msg.Body,
			SentAt: msg.SentAt,
			ReadAt: msg.ReadAt,
			ToUser: m.users[msg.ToUsername].Summary(),
		})
	}
	return messages, nil
}

func (m *memStore) MessagesTo(ctx context.Context, username string) ([]types.InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := make([]types.InboundMessage, 0)
	for _, msg := range m.sortedMessages() {
		if msg.ToUsername != username {
			continue
		}
		messages = append(messages, types.InboundMessage{
			ID:       msg.ID,
			Body:     msg.Body,
			SentAt:   msg.SentAt,
			ReadAt:   msg.ReadAt,
			FromUser: m.users[msg.FromUsername].Summary(),
		})
	}
	return messages, nil
}

func (m *memStore) CreateMessage(ctx context.Context, message types.Message) (types.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[message.FromUsername]; !exists {
		return types.Message{}, store.ErrForeignKey
	}
	if _, exists := m.users[message.ToUsername]; !exists {
		return types.Message{}, store.ErrForeignKey
	}
	m.nextID++
	message.ID = m.nextID
	m.messages[message.ID] = message
	return message, nil
}

func (m *memStore) GetMessage(ctx context.Context, id int64) (types.MessageDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, exists := m.messages[id]
	if !exists {
		return types.MessageDetail{}, store.ErrNotFound
	}
	return types.MessageDetail{
		ID:       msg.ID,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		ReadAt:   msg.ReadAt,
		FromUser: m.users[msg.FromUsername].Summary(),
		ToUser:   m.users[msg.ToUsername].Summary(),
	}, nil
}

func (m *memStore) MarkRead(ctx context.Context, id int64, at time.Time) (types.ReadReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, exists := m.messages[id]
	if !exists {
		return types.ReadReceipt{}, store.ErrNotFound
	}
	msg.ReadAt = &at
	m.messages[id] = msg
	return types.ReadReceipt{ID: id, ReadAt: at}, nil
}

func (m *memStore) sortedMessages() []types.Message {
	messages := make([]types.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages
}

// messageRepo adapts memStore's message methods to services.MessageRepository.
type messageRepo struct{ *memStore }

func (r messageRepo) Create(ctx context.Context, message types.Message) (types.Message, error) {
	return r.CreateMessage(ctx, message)
}

func (r messageRepo) Get(ctx context.Context, id int64) (types.MessageDetail, error) {
	return r.GetMessage(ctx, id)
}

func newTestRouter(ms *memStore) *chi.Mux {
	userService := services.NewUserService(ms, bcrypt.MinCost)
	messageService := services.NewMessageService(messageRepo{ms}, nil)

	authHandler := NewAuthHandler(userService, testSecret, time.Hour)
	userHandler := NewUserHandler(userService, nil)
	messageHandler := NewMessageHandler(messageService)
	authMiddleware := RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRoutes(router, authHandler)
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userHandler, authMiddleware)
	})
	router.Route("/messages", func(r chi.Router) {
		MessageRouter(r, messageHandler, authMiddleware)
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, value any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(value); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func registerUser(t *testing.T, router http.Handler, username string) string {
	t.Helper()

	recorder := doJSON(t, router, http.MethodPost, "/register", "", RegisterRequest{
		Username:  username,
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "User",
		Phone:     fmt.Sprintf("+1555%s", username),
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("register %s: status %d, body %s", username, recorder.Code, recorder.Body.String())
	}

	var resp TokenResponse
	decodeBody(t, recorder, &resp)
	if resp.Token == "" {
		t.Fatalf("register %s: empty token", username)
	}
	return resp.Token
}
