package service

import (
	"context"
	"testing"
	"time"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/andressep95/session-service/internal/logging"
	"github.com/andressep95/session-service/internal/repository/sqlstore"
	"github.com/andressep95/session-service/pkg/validator"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)

func newSessionService(t *testing.T) (*SessionService, *clockwork.FakeClock) {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, ":memory:", sqlstore.Options{Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := clockwork.NewFakeClockAt(start)
	svc := NewSessionService(sqlstore.NewSessionRepository(db), validator.NewValidator(), clock, logging.Discard())
	return svc, clock
}

func morningCalm() DraftInput {
	return DraftInput{
		Title:     "Morning Calm",
		Tags:      []string{"meditation", "calm"},
		ConfigURL: "https://cdn.example/a.json",
	}
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, domain.KindOf(err), "unexpected error: %v", err)
}

func TestSessionService_MorningCalm(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService(t)
	userA, userB := uuid.New(), uuid.New()

	created, err := svc.CreateDraft(ctx, userA, morningCalm())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, domain.SessionStatusDraft, created.Status)

	published, err := svc.Publish(ctx, userA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusPublished, published.Status)

	page, err := svc.ListPublished(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)

	err = svc.Delete(ctx, userB, created.ID)
	requireKind(t, err, domain.KindForbidden)

	got, err := svc.Get(ctx, userA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusPublished, got.Status)
	assert.Equal(t, "Morning Calm", got.Title)
}

func TestSessionService_CreateDraftNormalizesInput(t *testing.T) {
	svc, _ := newSessionService(t)

	s, err := svc.CreateDraft(context.Background(), uuid.New(), DraftInput{
		Title:     "  Evening Wind Down  ",
		Tags:      []string{" sleep ", "", "   ", "breath"},
		ConfigURL: " http://cdn.example/b.json ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Evening Wind Down", s.Title)
	assert.Equal(t, domain.Tags{"sleep", "breath"}, s.Tags)
	assert.Equal(t, "http://cdn.example/b.json", s.ConfigURL)
	assert.True(t, start.Equal(s.CreatedAt))
	assert.True(t, s.CreatedAt.Equal(s.UpdatedAt))
}

func TestSessionService_CreateDraftRejectsInvalidInput(t *testing.T) {
	longTag := make([]byte, 51)
	for i := range longTag {
		longTag[i] = 'x'
	}
	longTitle := make([]byte, 201)
	for i := range longTitle {
		longTitle[i] = 't'
	}

	tests := []struct {
		name  string
		in    DraftInput
		field string
	}{
		{"ftp url", DraftInput{Title: "ok", ConfigURL: "ftp://x"}, "json_file_url"},
		{"blank title", DraftInput{Title: "  ", ConfigURL: "https://cdn.example/a.json"}, "title"},
		{"unparseable url", DraftInput{Title: "ok", ConfigURL: "http://[::1"}, "json_file_url"},
		{"relative url", DraftInput{Title: "ok", ConfigURL: "/a.json"}, "json_file_url"},
		{"missing url", DraftInput{Title: "ok"}, "json_file_url"},
		{"title too long", DraftInput{Title: string(longTitle), ConfigURL: "https://cdn.example/a.json"}, "title"},
		{"tag too long", DraftInput{Title: "ok", Tags: []string{string(longTag)}, ConfigURL: "https://cdn.example/a.json"}, "tags[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newSessionService(t)
			owner := uuid.New()

			_, err := svc.CreateDraft(context.Background(), owner, tt.in)
			requireKind(t, err, domain.KindValidation)

			var de *domain.Error
			require.ErrorAs(t, err, &de)
			require.NotEmpty(t, de.Fields)
			assert.Equal(t, tt.field, de.Fields[0].Field)

			owned, err := svc.ListOwned(context.Background(), owner)
			require.NoError(t, err)
			assert.Zero(t, owned.Total())
		})
	}
}

func TestSessionService_CreateDraftReportsEveryField(t *testing.T) {
	svc, _ := newSessionService(t)

	_, err := svc.CreateDraft(context.Background(), uuid.New(), DraftInput{Title: " ", ConfigURL: "ftp://x"})
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Len(t, de.Fields, 2)
}

func TestSessionService_IdenticalUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, clock := newSessionService(t)
	owner := uuid.New()

	created, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := svc.UpdateDraft(ctx, owner, created.ID, morningCalm())
	require.NoError(t, err)

	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.Tags, updated.Tags)
	assert.Equal(t, created.ConfigURL, updated.ConfigURL)
	assert.Equal(t, created.Status, updated.Status)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestSessionService_UpdatePublishedKeepsStatus(t *testing.T) {
	ctx := context.Background()
	svc, clock := newSessionService(t)
	owner := uuid.New()

	s, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)
	_, err = svc.Publish(ctx, owner, s.ID)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	in := morningCalm()
	in.Title = "Morning Calm (extended)"
	updated, err := svc.UpdateDraft(ctx, owner, s.ID, in)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusPublished, updated.Status)
	assert.Equal(t, "Morning Calm (extended)", updated.Title)
	assert.True(t, start.Add(time.Minute).Equal(updated.UpdatedAt))
}

func TestSessionService_UpdatedAtNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService(t)
	owner := uuid.New()

	s, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)

	// a clock that has stepped back must not rewind updated_at
	svc.clock = clockwork.NewFakeClockAt(start.Add(-time.Hour))
	updated, err := svc.UpdateDraft(ctx, owner, s.ID, morningCalm())
	require.NoError(t, err)
	assert.True(t, s.UpdatedAt.Equal(updated.UpdatedAt))
}

func TestSessionService_PublishTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, clock := newSessionService(t)
	owner := uuid.New()

	s, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	first, err := svc.Publish(ctx, owner, s.ID)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := svc.Publish(ctx, owner, s.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Title, second.Title)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))

	page, err := svc.ListPublished(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestSessionService_PublishedIffListed(t *testing.T) {
	ctx := context.Background()
	svc, clock := newSessionService(t)
	owner := uuid.New()

	var published []uuid.UUID
	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		s, err := svc.CreateDraft(ctx, owner, morningCalm())
		require.NoError(t, err)
		if i%2 == 0 {
			_, err = svc.Publish(ctx, owner, s.ID)
			require.NoError(t, err)
			published = append(published, s.ID)
		}
	}

	page, err := svc.ListPublished(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, s := range page.Items {
		assert.True(t, s.IsPublished())
		ids = append(ids, s.ID)
	}
	// newest first
	assert.Equal(t, []uuid.UUID{published[1], published[0]}, ids)
}

func TestSessionService_ListPublishedPagination(t *testing.T) {
	ctx := context.Background()
	svc, clock := newSessionService(t)
	owner := uuid.New()

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		s, err := svc.CreateDraft(ctx, owner, morningCalm())
		require.NoError(t, err)
		_, err = svc.Publish(ctx, owner, s.ID)
		require.NoError(t, err)
	}

	page, err := svc.ListPublished(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext())
	assert.True(t, page.HasPrev())

	last, err := svc.ListPublished(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.HasNext())

	beyond, err := svc.ListPublished(ctx, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 5, beyond.Total)

	clamped, err := svc.ListPublished(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Page)
	assert.False(t, clamped.HasPrev())

	_, err = svc.ListPublished(ctx, 1, 0)
	requireKind(t, err, domain.KindValidation)
}

func TestSessionService_ListOwnedPartitions(t *testing.T) {
	ctx := context.Background()
	svc, clock := newSessionService(t)
	owner := uuid.New()

	older, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)
	clock.Advance(time.Second)
	newer, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)
	clock.Advance(time.Second)
	pub, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)
	_, err = svc.Publish(ctx, owner, pub.ID)
	require.NoError(t, err)

	_, err = svc.CreateDraft(ctx, uuid.New(), morningCalm())
	require.NoError(t, err)

	owned, err := svc.ListOwned(ctx, owner)
	require.NoError(t, err)
	require.Len(t, owned.Drafts, 2)
	require.Len(t, owned.Published, 1)
	assert.Equal(t, newer.ID, owned.Drafts[0].ID)
	assert.Equal(t, older.ID, owned.Drafts[1].ID)
	assert.Equal(t, pub.ID, owned.Published[0].ID)
	assert.Equal(t, 3, owned.Total())

	// touching the older draft moves it to the front
	clock.Advance(time.Second)
	_, err = svc.UpdateDraft(ctx, owner, older.ID, morningCalm())
	require.NoError(t, err)
	owned, err = svc.ListOwned(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, older.ID, owned.Drafts[0].ID)
}

func TestSessionService_DeleteRemovesFromAllListings(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService(t)
	owner := uuid.New()

	s, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)
	_, err = svc.Publish(ctx, owner, s.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, s.ID))

	owned, err := svc.ListOwned(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, owned.Total())

	page, err := svc.ListPublished(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)

	_, err = svc.Get(ctx, owner, s.ID)
	requireKind(t, err, domain.KindNotFound)

	err = svc.Delete(ctx, owner, s.ID)
	requireKind(t, err, domain.KindNotFound)
}

func TestSessionService_NonOwnerIsForbidden(t *testing.T) {
	ctx := context.Background()
	svc, clock := newSessionService(t)
	owner, stranger := uuid.New(), uuid.New()

	s, err := svc.CreateDraft(ctx, owner, morningCalm())
	require.NoError(t, err)
	clock.Advance(time.Minute)

	in := morningCalm()
	in.Title = "Hijacked"
	_, err = svc.UpdateDraft(ctx, stranger, s.ID, in)
	requireKind(t, err, domain.KindForbidden)

	_, err = svc.Publish(ctx, stranger, s.ID)
	requireKind(t, err, domain.KindForbidden)

	err = svc.Delete(ctx, stranger, s.ID)
	requireKind(t, err, domain.KindForbidden)

	_, err = svc.Get(ctx, stranger, s.ID)
	requireKind(t, err, domain.KindForbidden)

	got, err := svc.Get(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning Calm", got.Title)
	assert.Equal(t, domain.SessionStatusDraft, got.Status)
	assert.True(t, s.UpdatedAt.Equal(got.UpdatedAt))
}

func TestSessionService_NotFoundBeforeForbidden(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService(t)

	_, err := svc.UpdateDraft(ctx, uuid.New(), uuid.New(), DraftInput{})
	requireKind(t, err, domain.KindNotFound)

	_, err = svc.Publish(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionService_StrangerWithInvalidInputGetsForbidden(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService(t)

	s, err := svc.CreateDraft(ctx, uuid.New(), morningCalm())
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, uuid.New(), s.ID, DraftInput{Title: " ", ConfigURL: "ftp://x"})
	requireKind(t, err, domain.KindForbidden)
}

func TestSessionService_SaveDraft(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService(t)
	owner := uuid.New()

	s, created, err := svc.SaveDraft(ctx, owner, nil, morningCalm())
	require.NoError(t, err)
	assert.True(t, created)

	in := morningCalm()
	in.Tags = []string{"calm"}
	again, created, err := svc.SaveDraft(ctx, owner, &s.ID, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, s.ID, again.ID)
	assert.Equal(t, domain.Tags{"calm"}, again.Tags)

	_, created, err = svc.SaveDraft(ctx, owner, nil, DraftInput{Title: " "})
	requireKind(t, err, domain.KindValidation)
	assert.False(t, created)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, NormalizeTags([]string{" a", "", "b c ", "  "}))
	assert.Equal(t, []string{}, NormalizeTags(nil))
}
