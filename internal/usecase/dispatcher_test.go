package usecase_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/email"
	"github.com/ErlanBelekov/taskboard/internal/usecase"
)

func newDispatcher(notes *memNotifications, users *memUsers, sender email.Sender, concurrency int) *usecase.Dispatcher {
	return usecase.NewDispatcher(notes, users, sender, email.NewRenderer("https://tracker.example.com"), discard, concurrency, time.Second)
}

func msg(userID string) domain.Message {
	return domain.Message{UserID: userID, Title: "Task Updated", Body: "body", Category: domain.CategoryTaskUpdate}
}

func TestDeliver_AllSucceed(t *testing.T) {
	users := newUsers(manager, devA, devB)
	notes := newNotifications(users)
	sender := &fakeSender{}

	res := newDispatcher(notes, users, sender, 2).Deliver(context.Background(), []domain.Message{msg(manager.ID), msg(devA.ID), msg(devB.ID)})

	want := domain.BatchResult{Created: 3, EmailsAttempted: 3}
	if res != want {
		t.Fatalf("expected %+v, got %+v", want, res)
	}
	if sender.sent[0].subject != "[Task] Task Updated" {
		t.Fatalf("unexpected subject %q", sender.sent[0].subject)
	}
}

func TestDeliver_EmailFailureKeepsNotification(t *testing.T) {
	users := newUsers(devA)
	notes := newNotifications(users)
	sender := &fakeSender{failFor: map[string]bool{devA.Email: true}}

	res := newDispatcher(notes, users, sender, 1).Deliver(context.Background(), []domain.Message{msg(devA.ID)})

	if res.Created != 1 || res.EmailsAttempted != 1 || res.EmailFailures != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(notes.forUser(devA.ID)) != 1 {
		t.Fatal("in-app notification must survive the email failure")
	}
}

func TestDeliver_StoreFailureStillEmails(t *testing.T) {
	users := newUsers(devA, devB)
	notes := newNotifications(users)
	notes.failFor[devA.ID] = true
	sender := &fakeSender{}

	res := newDispatcher(notes, users, sender, 2).Deliver(context.Background(), []domain.Message{msg(devA.ID), msg(devB.ID)})

	want := domain.BatchResult{Created: 1, StoreFailures: 1, EmailsAttempted: 2}
	if res != want {
		t.Fatalf("expected %+v, got %+v", want, res)
	}
	if res.Created+res.StoreFailures != 2 {
		t.Fatal("every message must be accounted for")
	}
}

func TestDeliver_UnknownRecipient(t *testing.T) {
	users := newUsers(devA)
	notes := newNotifications(users)
	sender := &fakeSender{}

	res := newDispatcher(notes, users, sender, 1).Deliver(context.Background(), []domain.Message{msg("ghost")})

	want := domain.BatchResult{StoreFailures: 1, EmailsAttempted: 1, EmailFailures: 1}
	if res != want {
		t.Fatalf("expected %+v, got %+v", want, res)
	}
}

func TestDeliver_InvalidAddressIsAFailure(t *testing.T) {
	broken := &domain.User{ID: "x-1", Email: "not-an-address", Status: domain.UserActive, Role: domain.RoleDeveloper}
	users := newUsers(broken)
	notes := newNotifications(users)
	sender := &fakeSender{}

	res := newDispatcher(notes, users, sender, 1).Deliver(context.Background(), []domain.Message{msg(broken.ID)})

	if res.Created != 1 || res.EmailFailures != 1 || sender.count() != 0 {
		t.Fatalf("unexpected result %+v, sent %d", res, sender.count())
	}
}

func TestDeliver_MailNotConfigured(t *testing.T) {
	users := newUsers(devA)
	notes := newNotifications(users)

	res := newDispatcher(notes, users, email.UnconfiguredSender{}, 1).Deliver(context.Background(), []domain.Message{msg(devA.ID)})

	want := domain.BatchResult{Created: 1}
	if res != want {
		t.Fatalf("expected %+v, got %+v", want, res)
	}
}

func TestDeliver_AllWritesBeforeAnyEmail(t *testing.T) {
	users := newUsers(manager, devA, devB)
	notes := newNotifications(users)
	var seenAtFirstSend atomic.Int64
	seenAtFirstSend.Store(-1)
	sender := &fakeSender{send: func(context.Context, string) error {
		seenAtFirstSend.CompareAndSwap(-1, int64(notes.total()))
		return nil
	}}

	newDispatcher(notes, users, sender, 3).Deliver(context.Background(), []domain.Message{msg(manager.ID), msg(devA.ID), msg(devB.ID)})

	if got := seenAtFirstSend.Load(); got != 3 {
		t.Fatalf("first email went out after %d of 3 writes", got)
	}
}

func TestDeliver_BoundedConcurrency(t *testing.T) {
	var users []*domain.User
	var msgs []domain.Message
	for i := range 8 {
		u := &domain.User{ID: string(rune('a' + i)), Email: string(rune('a'+i)) + "@example.com", Status: domain.UserActive}
		users = append(users, u)
		msgs = append(msgs, msg(u.ID))
	}
	repo := newUsers(users...)

	var inFlight, peak atomic.Int64
	sender := &fakeSender{send: func(context.Context, string) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}}

	res := newDispatcher(newNotifications(repo), repo, sender, 2).Deliver(context.Background(), msgs)

	if res.EmailsAttempted != 8 {
		t.Fatalf("expected 8 attempts, got %d", res.EmailsAttempted)
	}
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent sends, saw %d", peak.Load())
	}
}

func TestDeliver_SendTimeout(t *testing.T) {
	users := newUsers(devA)
	sender := &fakeSender{send: func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	d := usecase.NewDispatcher(newNotifications(users), users, sender, email.NewRenderer(""), discard, 1, 20*time.Millisecond)

	res := d.Deliver(context.Background(), []domain.Message{msg(devA.ID)})
	if res.EmailFailures != 1 {
		t.Fatalf("expected the hung send to time out, got %+v", res)
	}
}
