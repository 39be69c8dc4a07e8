package verifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linklab/linkhub/internal/model"
	"github.com/linklab/linkhub/internal/store"
	"github.com/linklab/linkhub/internal/tester"
	"github.com/stretchr/testify/assert"
)

func newTestChecker(st store.Store) *LinkChecker {
	checker := NewLinkChecker(st, "")
	checker.timeout = 100 * time.Millisecond
	checker.backoff = time.Millisecond
	return checker
}

func createLink(t *testing.T, slug, url, status string) *model.Link {
	t.Helper()

	link := &model.Link{Slug: slug, Title: slug, URL: url, Status: status}
	if err := tester.TestDB().Create(link).Error; err != nil {
		t.Fatal(err)
	}
	return link
}

func getLink(t *testing.T, id uint) *model.Link {
	t.Helper()

	var link model.Link
	if err := tester.TestDB().First(&link, id).Error; err != nil {
		t.Fatal(err)
	}
	return &link
}

func TestLinkChecker_ClassifiesReachability(t *testing.T) {
	tester.Setup()
	st := store.NewGormStore(tester.TestDB())

	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()

	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer badSrv.Close()

	good := createLink(t, "good", okSrv.URL, model.StatusPublished)
	bad := createLink(t, "bad", badSrv.URL, model.StatusPublished)
	draft := createLink(t, "draft", okSrv.URL, model.StatusDraft)

	assert.NoError(t, newTestChecker(st).Check(context.TODO()))

	got := getLink(t, good.ID)
	assert.True(t, got.Verified)
	assert.NotNil(t, got.VerifiedAt)
	assert.NotNil(t, got.LastCheckedAt)
	assert.Equal(t, model.VerifiedBySystem, *got.VerifiedBy)

	got = getLink(t, bad.ID)
	assert.False(t, got.Verified)
	assert.NotNil(t, got.VerifiedAt)
	assert.Equal(t, model.VerifiedBySystem, *got.VerifiedBy)

	// draft links are never probed
	got = getLink(t, draft.ID)
	assert.False(t, got.Verified)
	assert.Nil(t, got.VerifiedAt)
}

func TestLinkChecker_HeadFallsBackToGet(t *testing.T) {
	tester.Setup()
	st := store.NewGormStore(tester.TestDB())

	var heads, gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gets.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	link := createLink(t, "head-hostile", srv.URL, model.StatusPublished)

	assert.NoError(t, newTestChecker(st).Check(context.TODO()))

	assert.True(t, getLink(t, link.ID).Verified, "405 to HEAD with 200 to GET is reachable")
	assert.Equal(t, int32(1), heads.Load())
	assert.Equal(t, int32(1), gets.Load())
}

func TestLinkChecker_RetriesThenGivesUp(t *testing.T) {
	tester.Setup()
	st := store.NewGormStore(tester.TestDB())

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	link := createLink(t, "flaky", srv.URL, model.StatusPublished)

	assert.NoError(t, newTestChecker(st).Check(context.TODO()))

	assert.False(t, getLink(t, link.ID).Verified)
	assert.Equal(t, int32(maxRetries), attempts.Load(), "probe retries exactly maxRetries times")
}

func TestLinkChecker_AnyAttemptSucceeding_IsReachable(t *testing.T) {
	tester.Setup()
	st := store.NewGormStore(tester.TestDB())

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	link := createLink(t, "eventually-ok", srv.URL, model.StatusPublished)

	assert.NoError(t, newTestChecker(st).Check(context.TODO()))

	assert.True(t, getLink(t, link.ID).Verified)
}

func TestLinkChecker_TimeoutIsUnreachable(t *testing.T) {
	tester.Setup()
	st := store.NewGormStore(tester.TestDB())

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	link := createLink(t, "hanging", srv.URL, model.StatusPublished)

	assert.NoError(t, newTestChecker(st).Check(context.TODO()))

	assert.False(t, getLink(t, link.ID).Verified)
	assert.Equal(t, int32(maxRetries), attempts.Load())
}

func TestLinkChecker_MalformedURLIsLeftUnchanged(t *testing.T) {
	tester.Setup()
	st := store.NewGormStore(tester.TestDB())

	link := createLink(t, "malformed", ":not-a-url", model.StatusPublished)

	assert.NoError(t, newTestChecker(st).Check(context.TODO()))

	got := getLink(t, link.ID)
	assert.False(t, got.Verified)
	assert.Nil(t, got.VerifiedAt, "unparseable urls are skipped, not classified")
}

func TestLinkChecker_RerunIsIdempotent(t *testing.T) {
	tester.Setup()
	st := store.NewGormStore(tester.TestDB())

	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()

	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer badSrv.Close()

	good := createLink(t, "stable-good", okSrv.URL, model.StatusPublished)
	bad := createLink(t, "stable-bad", badSrv.URL, model.StatusPublished)

	checker := newTestChecker(st)
	assert.NoError(t, checker.Check(context.TODO()))
	firstGood := getLink(t, good.ID).Verified
	firstBad := getLink(t, bad.ID).Verified

	assert.NoError(t, checker.Check(context.TODO()))

	assert.Equal(t, firstGood, getLink(t, good.ID).Verified)
	assert.Equal(t, firstBad, getLink(t, bad.ID).Verified)
	assert.True(t, firstGood)
	assert.False(t, firstBad)
}

func TestLinkChecker_NoPublishedLinks(t *testing.T) {
	tester.Setup()
	st := store.NewGormStore(tester.TestDB())

	createLink(t, "only-draft", "https://a.test", model.StatusDraft)

	assert.NoError(t, newTestChecker(st).Check(context.TODO()))
}
