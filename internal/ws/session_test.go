package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-chat-service/internal/mocks"
	"social-chat-service/internal/models"
	"social-chat-service/internal/notifications"
	"social-chat-service/internal/repositories"
)

const testSecret = "test-secret"

type sessionFixture struct {
	srv         *httptest.Server
	hub         *Hub
	convRepo    *mocks.ConversationRepositoryMock
	messageRepo *mocks.MessageRepositoryMock
	followRepo  *mocks.FollowRepositoryMock
	profileRepo *mocks.ProfileRepositoryMock
	notifRepo   *mocks.NotificationRepositoryMock
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &sessionFixture{
		hub:         NewHub(),
		convRepo:    new(mocks.ConversationRepositoryMock),
		messageRepo: new(mocks.MessageRepositoryMock),
		followRepo:  new(mocks.FollowRepositoryMock),
		profileRepo: new(mocks.ProfileRepositoryMock),
		notifRepo:   new(mocks.NotificationRepositoryMock),
	}

	notifier := notifications.NewDispatcher(f.notifRepo, f.convRepo)
	handler := NewSessionHandler(f.hub, f.convRepo, f.messageRepo, f.followRepo, f.profileRepo, notifier, testSecret)

	router := gin.New()
	router.GET("/ws/conversations/:conversation_id", handler.Handle)

	f.srv = httptest.NewServer(router)
	t.Cleanup(f.srv.Close)
	return f
}

// allowConnect sets up the handshake expectations for one user in c1 with u1
// and u2 as the participant pair.
func (f *sessionFixture) allowConnect(userID, username string) {
	other := "u2"
	if userID == "u2" {
		other = "u1"
	}
	f.convRepo.On("IsParticipant", mock.Anything, "c1", userID).Return(true, nil)
	f.convRepo.On("OtherParticipantIDs", mock.Anything, "c1", userID).Return([]string{other}, nil)
	f.followRepo.On("IsMutual", mock.Anything, userID, other).Return(true, nil)
	f.profileRepo.On("GetProfile", mock.Anything, userID).
		Return(models.Profile{UserID: userID, Username: username}, nil)
}

func testToken(t *testing.T, userID, username string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *sessionFixture) dial(t *testing.T, userID, username string) *websocket.Conn {
	t.Helper()
	before := f.hub.RoomSize("c1")
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") +
		"/ws/conversations/c1?token=" + testToken(t, userID, username)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// the handshake response lands before the session joins the room; wait
	// for the join so event ordering in tests is deterministic
	deadline := time.Now().Add(2 * time.Second)
	for f.hub.RoomSize("c1") <= before {
		if time.Now().After(deadline) {
			t.Fatalf("session never joined the room")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func (f *sessionFixture) dialExpectingStatus(t *testing.T, url string, status int) {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, status, resp.StatusCode)
}

func sendEvent(t *testing.T, conn *websocket.Conn, event models.InboundEvent) {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func expectNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no event expected on this connection")
}

func TestSessionRejectsMissingToken(t *testing.T) {
	f := newSessionFixture(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/conversations/c1"
	f.dialExpectingStatus(t, url, http.StatusUnauthorized)
}

func TestSessionRejectsNonParticipant(t *testing.T) {
	f := newSessionFixture(t)
	f.convRepo.On("IsParticipant", mock.Anything, "c1", "u3").Return(false, nil)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") +
		"/ws/conversations/c1?token=" + testToken(t, "u3", "carol")
	f.dialExpectingStatus(t, url, http.StatusForbidden)
	f.convRepo.AssertExpectations(t)
}

func TestSessionRejectsWhenNotMutual(t *testing.T) {
	f := newSessionFixture(t)
	f.convRepo.On("IsParticipant", mock.Anything, "c1", "u1").Return(true, nil)
	f.convRepo.On("OtherParticipantIDs", mock.Anything, "c1", "u1").Return([]string{"u2"}, nil)
	f.followRepo.On("IsMutual", mock.Anything, "u1", "u2").Return(false, nil)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") +
		"/ws/conversations/c1?token=" + testToken(t, "u1", "alice")
	f.dialExpectingStatus(t, url, http.StatusForbidden)
	f.followRepo.AssertExpectations(t)
}

func TestSessionTypingNotEchoedToTypist(t *testing.T) {
	f := newSessionFixture(t)
	f.allowConnect("u1", "alice")
	f.allowConnect("u2", "bob")

	alice := f.dial(t, "u1", "alice")
	bob := f.dial(t, "u2", "bob")

	// alice sees bob come online; bob joined after her and gets nothing
	status := readEvent(t, alice)
	require.Equal(t, "user_status", status["type"])
	require.Equal(t, "u2", status["user_id"])

	sendEvent(t, alice, models.InboundEvent{Type: models.EventTypeTyping, IsTyping: true})

	typing := readEvent(t, bob)
	assert.Equal(t, "typing", typing["type"])
	assert.Equal(t, "u1", typing["user_id"])
	assert.Equal(t, true, typing["is_typing"])

	expectNoEvent(t, alice)
}

func TestSessionMessageReachesAllIncludingSender(t *testing.T) {
	f := newSessionFixture(t)
	f.allowConnect("u1", "alice")
	f.allowConnect("u2", "bob")

	f.messageRepo.On("PostMessage", mock.Anything, repositories.PostMessageParams{
		ConversationID: "c1",
		SenderID:       "u1",
		Content:        "hi",
	}).Return(models.Message{
		ID: "m1", ConversationID: "c1", SenderID: "u1",
		Content: "hi", MessageType: models.MessageTypeText, CreatedAt: time.Now(),
	}, nil).Once()
	f.notifRepo.On("GetSettings", mock.Anything, "u2").Return(models.NotificationSettings{
		UserID: "u2", AppOnFollow: true, AppOnLike: true, AppOnComment: true, AppOnMessage: true,
	}, nil)
	f.notifRepo.On("Create", mock.Anything, mock.Anything).Return(models.Notification{ID: "n1"}, nil)

	alice := f.dial(t, "u1", "alice")
	bob := f.dial(t, "u2", "bob")
	readEvent(t, alice) // bob's online status

	sendEvent(t, alice, models.InboundEvent{Type: models.EventTypeMessage, Content: "hi"})

	// chat messages go to the whole room so the sender's other devices stay
	// in sync
	for _, conn := range []*websocket.Conn{alice, bob} {
		event := readEvent(t, conn)
		require.Equal(t, "message", event["type"])
		payload := event["message"].(map[string]any)
		assert.Equal(t, "m1", payload["id"])
		assert.Equal(t, "hi", payload["content"])
	}
	f.messageRepo.AssertExpectations(t)
}

func TestSessionMutualRevokedAtSend(t *testing.T) {
	f := newSessionFixture(t)
	f.allowConnect("u1", "alice")
	f.allowConnect("u2", "bob")

	f.messageRepo.On("PostMessage", mock.Anything, mock.Anything).
		Return(models.Message{}, repositories.ErrMutualFollowRequired).Once()

	alice := f.dial(t, "u1", "alice")
	bob := f.dial(t, "u2", "bob")
	readEvent(t, alice) // bob's online status

	sendEvent(t, alice, models.InboundEvent{Type: models.EventTypeMessage, Content: "hi"})

	// the failure is private to the sender and nothing reaches the room
	errEvent := readEvent(t, alice)
	require.Equal(t, "error", errEvent["type"])
	assert.Contains(t, errEvent["message"], "mutual followers")
	expectNoEvent(t, bob)
	f.messageRepo.AssertExpectations(t)
}

func TestSessionInvalidJSONGetsPrivateError(t *testing.T) {
	f := newSessionFixture(t)
	f.allowConnect("u1", "alice")

	alice := f.dial(t, "u1", "alice")
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))

	errEvent := readEvent(t, alice)
	assert.Equal(t, "error", errEvent["type"])
	assert.Equal(t, "invalid JSON", errEvent["message"])
}

func TestSessionReadReceiptNotEchoedToReader(t *testing.T) {
	f := newSessionFixture(t)
	f.allowConnect("u1", "alice")
	f.allowConnect("u2", "bob")

	f.messageRepo.On("MarkRead", mock.Anything, "m1", "u1").Return(nil).Once()

	alice := f.dial(t, "u1", "alice")
	bob := f.dial(t, "u2", "bob")
	readEvent(t, alice) // bob's online status

	sendEvent(t, alice, models.InboundEvent{Type: models.EventTypeReadReceipt, MessageID: "m1"})

	receipt := readEvent(t, bob)
	assert.Equal(t, "read_receipt", receipt["type"])
	assert.Equal(t, "m1", receipt["message_id"])
	assert.Equal(t, "u1", receipt["user_id"])

	expectNoEvent(t, alice)
	f.messageRepo.AssertExpectations(t)
}

func TestSessionUnknownEventIgnored(t *testing.T) {
	f := newSessionFixture(t)
	f.allowConnect("u1", "alice")

	alice := f.dial(t, "u1", "alice")
	sendEvent(t, alice, models.InboundEvent{Type: "ping"})

	expectNoEvent(t, alice)
}

func TestSessionDisconnectBroadcastsOffline(t *testing.T) {
	f := newSessionFixture(t)
	f.allowConnect("u1", "alice")
	f.allowConnect("u2", "bob")

	alice := f.dial(t, "u1", "alice")
	bob := f.dial(t, "u2", "bob")
	readEvent(t, alice) // bob's online status

	require.NoError(t, bob.Close())

	status := readEvent(t, alice)
	assert.Equal(t, "user_status", status["type"])
	assert.Equal(t, "u2", status["user_id"])
	assert.Equal(t, "offline", status["status"])
}
