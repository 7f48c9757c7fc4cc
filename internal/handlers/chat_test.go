package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-chat-service/internal/mocks"
	"social-chat-service/internal/models"
	"social-chat-service/internal/notifications"
	"social-chat-service/internal/repositories"
	"social-chat-service/internal/ws"
)

func setupChatRouter(handler *ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Set("username", "alice")
		c.Next()
	})
	r.GET("/conversations", handler.ListConversations)
	r.POST("/conversations/start", handler.StartConversation)
	r.GET("/conversations/:conversation_id/messages", handler.GetMessages)
	r.POST("/conversations/:conversation_id/messages", handler.PostMessage)
	r.GET("/conversations/:conversation_id/unread-count", handler.UnreadCount)
	r.POST("/messages/:message_id/read", handler.MarkMessageRead)
	r.PATCH("/conversations/:conversation_id/settings", handler.UpdateMemberSettings)
	return r
}

func allEnabledSettings(userID string) models.NotificationSettings {
	return models.NotificationSettings{
		UserID:       userID,
		AppOnFollow:  true,
		AppOnLike:    true,
		AppOnComment: true,
		AppOnMessage: true,
	}
}

func TestListConversationsSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewChatHandler(convRepo, nil, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	convRepo.On("ListConversations", mock.Anything, "u1").
		Return([]models.ConversationSummary{{ConversationID: "c1", FriendID: "u2", FriendUsername: "bob", UnreadCount: 2}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]models.ConversationSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["conversations"], 1)
	assert.Equal(t, 2, resp["conversations"][0].UnreadCount)
	convRepo.AssertExpectations(t)
}

func TestListConversationsRepoError(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewChatHandler(convRepo, nil, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	convRepo.On("ListConversations", mock.Anything, "u1").
		Return(([]models.ConversationSummary)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestStartConversationSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	followRepo := new(mocks.FollowRepositoryMock)
	handler := NewChatHandler(convRepo, nil, followRepo, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	followRepo.On("IsMutual", mock.Anything, "u1", "u2").Return(true, nil).Once()
	convRepo.On("GetOrCreateConversation", mock.Anything, "u1", "u2").
		Return(models.Conversation{ID: "c1"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/start", bytes.NewBufferString(`{"user_id":"u2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	followRepo.AssertExpectations(t)
	convRepo.AssertExpectations(t)
}

func TestStartConversationNotMutual(t *testing.T) {
	followRepo := new(mocks.FollowRepositoryMock)
	handler := NewChatHandler(new(mocks.ConversationRepositoryMock), nil, followRepo, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	followRepo.On("IsMutual", mock.Anything, "u1", "u2").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/start", bytes.NewBufferString(`{"user_id":"u2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	followRepo.AssertExpectations(t)
}

func TestStartConversationWithSelf(t *testing.T) {
	handler := NewChatHandler(new(mocks.ConversationRepositoryMock), nil, new(mocks.FollowRepositoryMock), nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/conversations/start", bytes.NewBufferString(`{"user_id":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagesAdvancesWatermark(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(convRepo, messageRepo, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	convRepo.On("IsParticipant", mock.Anything, "c1", "u1").Return(true, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, "c1", 0).
		Return([]models.MessageWithSender{
			{Message: models.Message{ID: "m1", ConversationID: "c1"}},
			{Message: models.Message{ID: "m2", ConversationID: "c1"}},
		}, nil).Once()
	messageRepo.On("MarkRead", mock.Anything, "m2", "u1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/c1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestGetMessagesNotParticipant(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewChatHandler(convRepo, new(mocks.MessageRepositoryMock), nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	convRepo.On("IsParticipant", mock.Anything, "c1", "u1").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/c1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestPostMessageSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	profileRepo := new(mocks.ProfileRepositoryMock)
	notifRepo := new(mocks.NotificationRepositoryMock)
	notifier := notifications.NewDispatcher(notifRepo, convRepo)
	handler := NewChatHandler(convRepo, messageRepo, nil, profileRepo, notifier, ws.NewHub())
	router := setupChatRouter(handler)

	messageRepo.On("PostMessage", mock.Anything, repositories.PostMessageParams{
		ConversationID: "c1",
		SenderID:       "u1",
		Content:        "hi",
	}).Return(models.Message{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hi", MessageType: models.MessageTypeText, CreatedAt: time.Now()}, nil).Once()
	profileRepo.On("GetProfile", mock.Anything, "u1").
		Return(models.Profile{UserID: "u1", Username: "alice"}, nil).Once()
	convRepo.On("OtherParticipantIDs", mock.Anything, "c1", "u1").Return([]string{"u2"}, nil).Once()
	notifRepo.On("GetSettings", mock.Anything, "u2").Return(allEnabledSettings("u2"), nil).Once()
	notifRepo.On("Create", mock.Anything, mock.Anything).Return(models.Notification{ID: "n1"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/c1/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
	convRepo.AssertExpectations(t)
	notifRepo.AssertExpectations(t)
}

func TestPostMessageMutualRevoked(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(new(mocks.ConversationRepositoryMock), messageRepo, nil, new(mocks.ProfileRepositoryMock), nil, ws.NewHub())
	router := setupChatRouter(handler)

	messageRepo.On("PostMessage", mock.Anything, mock.Anything).
		Return(models.Message{}, repositories.ErrMutualFollowRequired).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/c1/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPostMessageTooLong(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(new(mocks.ConversationRepositoryMock), messageRepo, nil, new(mocks.ProfileRepositoryMock), nil, ws.NewHub())
	router := setupChatRouter(handler)

	messageRepo.On("PostMessage", mock.Anything, mock.Anything).
		Return(models.Message{}, repositories.ErrContentTooLong).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/c1/messages", bytes.NewBufferString(`{"content":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestUnreadCountSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(new(mocks.ConversationRepositoryMock), messageRepo, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	messageRepo.On("UnreadCount", mock.Anything, "c1", "u1").Return(3, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/c1/unread-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unread_count":3`)
	messageRepo.AssertExpectations(t)
}

func TestUnreadCountNotParticipant(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(new(mocks.ConversationRepositoryMock), messageRepo, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	messageRepo.On("UnreadCount", mock.Anything, "c1", "u1").
		Return(0, repositories.ErrNotAParticipant).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/c1/unread-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestMarkMessageReadNotFound(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(new(mocks.ConversationRepositoryMock), messageRepo, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	messageRepo.On("GetMessage", mock.Anything, "m9").
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/m9/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestMarkMessageReadSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(convRepo, messageRepo, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	messageRepo.On("GetMessage", mock.Anything, "m1").
		Return(models.Message{ID: "m1", ConversationID: "c1", SenderID: "u2"}, nil).Once()
	convRepo.On("IsParticipant", mock.Anything, "c1", "u1").Return(true, nil).Once()
	messageRepo.On("MarkRead", mock.Anything, "m1", "u1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/m1/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	convRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestUpdateMemberSettingsSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewChatHandler(convRepo, nil, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	convRepo.On("UpdateMemberSettings", mock.Anything, "c1", "u1",
		models.MemberSettings{IsMuted: true}).Return(nil).Once()
	convRepo.On("GetMember", mock.Anything, "c1", "u1").
		Return(models.ConversationMember{ConversationID: "c1", UserID: "u1", IsMuted: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/conversations/c1/settings", bytes.NewBufferString(`{"is_muted":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var member models.ConversationMember
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&member))
	assert.True(t, member.IsMuted)
	convRepo.AssertExpectations(t)
}

func TestUpdateMemberSettingsNotParticipant(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewChatHandler(convRepo, nil, nil, nil, nil, ws.NewHub())
	router := setupChatRouter(handler)

	convRepo.On("UpdateMemberSettings", mock.Anything, "c1", "u1", mock.Anything).
		Return(repositories.ErrNotAParticipant).Once()

	req := httptest.NewRequest(http.MethodPatch, "/conversations/c1/settings", bytes.NewBufferString(`{"is_muted":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	convRepo.AssertExpectations(t)
}
