package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"social-chat-service/internal/mocks"
	"social-chat-service/internal/models"
	"social-chat-service/internal/repositories"
)

func enabledSettings(userID string) models.NotificationSettings {
	return models.NotificationSettings{
		UserID:       userID,
		AppOnFollow:  true,
		AppOnLike:    true,
		AppOnComment: true,
		AppOnMessage: true,
	}
}

func TestFollowCreatedNotifiesRecipient(t *testing.T) {
	notifRepo := new(mocks.NotificationRepositoryMock)
	d := NewDispatcher(notifRepo, new(mocks.ConversationRepositoryMock))

	notifRepo.On("GetSettings", mock.Anything, "u2").Return(enabledSettings("u2"), nil).Once()
	notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(p repositories.CreateNotificationParams) bool {
		return p.RecipientID == "u2" &&
			p.NotificationType == models.NotificationTypeFollow &&
			p.SenderID != nil && *p.SenderID == "u1"
	})).Return(models.Notification{ID: "n1"}, nil).Once()

	d.FollowCreated(context.Background(), "u1", "alice", "u2")
	notifRepo.AssertExpectations(t)
}

func TestDispatchSkipsSelf(t *testing.T) {
	notifRepo := new(mocks.NotificationRepositoryMock)
	d := NewDispatcher(notifRepo, new(mocks.ConversationRepositoryMock))

	// liking your own post must not produce a notification
	d.PostLiked(context.Background(), "u1", "alice", models.Post{ID: "p1", UserID: "u1"})

	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDispatchHonorsSettingsToggle(t *testing.T) {
	notifRepo := new(mocks.NotificationRepositoryMock)
	d := NewDispatcher(notifRepo, new(mocks.ConversationRepositoryMock))

	settings := enabledSettings("u2")
	settings.AppOnLike = false
	notifRepo.On("GetSettings", mock.Anything, "u2").Return(settings, nil).Once()

	d.PostLiked(context.Background(), "u1", "alice", models.Post{ID: "p1", UserID: "u2"})

	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	notifRepo.AssertExpectations(t)
}

func TestDispatchSwallowsRepoErrors(t *testing.T) {
	notifRepo := new(mocks.NotificationRepositoryMock)
	d := NewDispatcher(notifRepo, new(mocks.ConversationRepositoryMock))

	notifRepo.On("GetSettings", mock.Anything, "u2").Return(enabledSettings("u2"), nil).Once()
	notifRepo.On("Create", mock.Anything, mock.Anything).
		Return(models.Notification{}, assert.AnError).Once()

	// dispatch must not panic or surface the failure
	d.PostLiked(context.Background(), "u1", "alice", models.Post{ID: "p1", UserID: "u2"})
	notifRepo.AssertExpectations(t)
}

func TestMessageSentFansOutToOtherParticipants(t *testing.T) {
	notifRepo := new(mocks.NotificationRepositoryMock)
	convRepo := new(mocks.ConversationRepositoryMock)
	d := NewDispatcher(notifRepo, convRepo)

	convRepo.On("OtherParticipantIDs", mock.Anything, "c1", "u1").Return([]string{"u2"}, nil).Once()
	notifRepo.On("GetSettings", mock.Anything, "u2").Return(enabledSettings("u2"), nil).Once()
	notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(p repositories.CreateNotificationParams) bool {
		return p.RecipientID == "u2" &&
			p.NotificationType == models.NotificationTypeMessage &&
			p.RelatedConversationID != nil && *p.RelatedConversationID == "c1"
	})).Return(models.Notification{ID: "n1"}, nil).Once()

	d.MessageSent(context.Background(), "u1", "alice", "c1")
	convRepo.AssertExpectations(t)
	notifRepo.AssertExpectations(t)
}

func TestMessageSentNeverNotifiesSender(t *testing.T) {
	notifRepo := new(mocks.NotificationRepositoryMock)
	convRepo := new(mocks.ConversationRepositoryMock)
	d := NewDispatcher(notifRepo, convRepo)

	// a participant listing that still contains the sender is filtered out
	convRepo.On("OtherParticipantIDs", mock.Anything, "c1", "u1").Return([]string{"u1", "u2"}, nil).Once()
	notifRepo.On("GetSettings", mock.Anything, "u2").Return(enabledSettings("u2"), nil).Once()
	notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(p repositories.CreateNotificationParams) bool {
		return p.RecipientID == "u2"
	})).Return(models.Notification{ID: "n1"}, nil).Once()

	d.MessageSent(context.Background(), "u1", "alice", "c1")
	convRepo.AssertExpectations(t)
	notifRepo.AssertExpectations(t)
}
