package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
)

type stubUserRepo struct {
	users map[string]*entity.User
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.users[id], nil
}

func (s *stubUserRepo) FirstActiveByRole(ctx context.Context, role string) (*entity.User, error) {
	return nil, nil
}

func (s *stubUserRepo) FirstActivePayrollManager(ctx context.Context) (*entity.User, error) {
	return nil, nil
}

func (s *stubUserRepo) DepartmentHead(ctx context.Context, department string) (*entity.User, error) {
	return nil, nil
}

func TestNotify_SendsMail(t *testing.T) {
	users := &stubUserRepo{users: map[string]*entity.User{
		"mgr-1": {ID: "mgr-1", Email: "mgr@example.com"},
	}}
	n := NewNotifier(users, SMTPConfig{Host: "mail.example.com", Port: 587, From: "noreply@example.com"}, zap.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := n.Notify(context.Background(), port.NotificationIntent{
		InstanceID:  "inst-1",
		RecipientID: "mgr-1",
		Kind:        entity.NotificationKindPending,
		Channel:     "email",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"mgr@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Approval required")
	assert.Contains(t, string(gotMsg), "inst-1")
}

func TestNotify_LogOnlyWhenNoHost(t *testing.T) {
	users := &stubUserRepo{users: map[string]*entity.User{
		"mgr-1": {ID: "mgr-1", Email: "mgr@example.com"},
	}}
	n := NewNotifier(users, SMTPConfig{}, zap.NewNop())
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Fatal("send must not be called in log-only mode")
		return nil
	}

	err := n.Notify(context.Background(), port.NotificationIntent{
		InstanceID:  "inst-1",
		RecipientID: "mgr-1",
		Kind:        entity.NotificationKindApproved,
	})
	assert.NoError(t, err)
}

func TestNotify_UnknownRecipient(t *testing.T) {
	n := NewNotifier(&stubUserRepo{}, SMTPConfig{}, zap.NewNop())

	err := n.Notify(context.Background(), port.NotificationIntent{RecipientID: "ghost"})
	assert.ErrorContains(t, err, "not found")
}

func TestNotify_SendFailureSurfaced(t *testing.T) {
	users := &stubUserRepo{users: map[string]*entity.User{
		"mgr-1": {ID: "mgr-1", Email: "mgr@example.com"},
	}}
	n := NewNotifier(users, SMTPConfig{Host: "mail.example.com", Port: 587, From: "noreply@example.com"}, zap.NewNop())
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	err := n.Notify(context.Background(), port.NotificationIntent{
		RecipientID: "mgr-1",
		Kind:        entity.NotificationKindRejected,
	})
	assert.ErrorContains(t, err, "connection refused")
}
