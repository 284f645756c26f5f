package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendpoints/internal/amqp"
	"spendpoints/internal/cache"
	"spendpoints/internal/core"
	applog "spendpoints/internal/log"
	"spendpoints/internal/points"
	"spendpoints/internal/storage"
)

// Wednesday; the weekly window starts on Monday 2025-03-10.
var testNow = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.PointsChangedMessage
	err  error
}

func (p *recordingPublisher) PublishPointsChanged(_ context.Context, msg *amqp.PointsChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) published() []*amqp.PointsChangedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.PointsChangedMessage(nil), p.msgs...)
}

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testCaches() Caches {
	return Caches{
		Standings: cache.NewLRUCache[[]core.House](10, time.Minute),
		Progress:  cache.NewLRUCache[core.CategoryProgress](100, time.Minute),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func spendOn(day int, amount string) core.Expenditure {
	return core.Expenditure{Date: core.NewDate(2025, 3, day), Amount: dec(amount), Description: "test"}
}

type fixture struct {
	store     *storage.SQLiteRepository
	publisher *recordingPublisher
	caches    Caches
	accounts  *AccountService
	category  *CategoryService
	spend     *ExpenditureService
	logins    *LoginService
	reports   *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newTestStore(t)
	pub := &recordingPublisher{}
	caches := testCaches()

	f := &fixture{
		store:     store,
		publisher: pub,
		caches:    caches,
		accounts:  NewAccountService(store, caches),
		category:  NewCategoryService(store, caches),
		spend:     NewExpenditureService(store, pub, caches),
		logins:    NewLoginService(store, pub, caches),
		reports:   NewReportService(store, caches),
	}
	clock := func() time.Time { return testNow }
	f.spend.now = clock
	f.logins.now = clock
	f.reports.now = clock
	return f
}

func (f *fixture) member(t *testing.T, house string) (core.User, core.House) {
	t.Helper()
	ctx := context.Background()
	h, err := f.accounts.CreateHouse(ctx, house)
	require.NoError(t, err)
	u, err := f.accounts.CreateUser(ctx, "harry", &h.ID)
	require.NoError(t, err)
	return u, h
}

func (f *fixture) weeklyCategory(t *testing.T, userID int64, limit string) core.Category {
	t.Helper()
	c, err := f.category.Create(context.Background(), userID, "Groceries",
		core.SpendingLimit{Amount: dec(limit), Period: core.Weekly})
	require.NoError(t, err)
	return c
}

func TestExpenditureService_ScoringSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, house := f.member(t, "Gryffindor")
	c := f.weeklyCategory(t, user.ID, "100")

	steps := []struct {
		amount      string
		branch      points.Branch
		delta       int
		nearing     bool
		userPoints  int
		housePoints int
	}{
		{"20", points.BranchWithin, 5, false, 5, 5},
		{"70", points.BranchWithin, 5, true, 10, 10},
		{"20", points.BranchWentOver, -3, false, 7, 7},
		// Already over: bucketed on limit + 40, i.e. 40% over.
		{"40", points.BranchAlreadyOver, -10, false, 0, -3},
	}

	for i, step := range steps {
		res, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(12, step.amount))
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.branch, res.Outcome.Branch, "step %d", i)
		assert.Equal(t, step.delta, res.Outcome.Delta, "step %d", i)
		assert.Equal(t, step.nearing, res.Outcome.Nearing, "step %d", i)
		assert.Equal(t, step.userPoints, res.Balance.UserPoints, "step %d", i)
		require.NotNil(t, res.Balance.HousePoints, "step %d", i)
		assert.Equal(t, step.housePoints, *res.Balance.HousePoints, "step %d", i)
	}

	got, err := f.accounts.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Points)

	standings, err := f.reports.Standings(ctx)
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, house.ID, standings[0].ID)
	assert.Equal(t, -3, standings[0].Points)

	msgs := f.publisher.published()
	require.Len(t, msgs, 4)
	assert.Equal(t, points.ReasonWithinTarget, msgs[0].Reason)
	assert.Equal(t, -10, msgs[3].Delta)
	assert.Equal(t, points.ReasonOverTarget, msgs[3].Reason)
	require.NotNil(t, msgs[3].HouseID)
	assert.Equal(t, house.ID, *msgs[3].HouseID)

	notes, err := f.accounts.Notifications(ctx, user.ID, true)
	require.NoError(t, err)
	titles := map[string]int{}
	for _, n := range notes {
		titles[n.Title]++
	}
	assert.Equal(t, 2, titles[points.TitlePointsWon])
	assert.Equal(t, 1, titles[points.TitleWatchOut])
	assert.Equal(t, 2, titles[points.TitlePointsLost])
	assert.Equal(t, 2, titles[points.TitleHouseWon])
	assert.Equal(t, 2, titles[points.TitleHouseLost])
}

func TestExpenditureService_BackdatedExpenditure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, house := f.member(t, "Hufflepuff")
	c := f.weeklyCategory(t, user.ID, "100")

	// Dated in an earlier week: stored, scored, but not counted this week.
	res, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(1, "500"))
	require.NoError(t, err)
	assert.NotZero(t, res.Expenditure.ID)
	assert.Equal(t, points.BranchWithin, res.Outcome.Branch)
	assert.Equal(t, points.WithinTargetBonus, res.Outcome.Delta)
	assert.False(t, res.Outcome.Nearing)
	assert.Equal(t, 5, res.Balance.UserPoints)
	require.Len(t, f.publisher.published(), 1)

	h, err := f.store.GetHouse(ctx, house.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, h.Points)

	progress, err := f.reports.Progress(ctx, user.ID, c.ID, "")
	require.NoError(t, err)
	assert.True(t, progress.Spent.IsZero())
}

func TestExpenditureService_UserWithoutHouse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.accounts.CreateUser(ctx, "loner", nil)
	require.NoError(t, err)
	c := f.weeklyCategory(t, user.ID, "50")

	res, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(11, "10"))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Balance.UserPoints)
	assert.Nil(t, res.Balance.HousePoints)

	notes, err := f.accounts.Notifications(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, points.TitlePointsWon, notes[0].Title)
}

func TestExpenditureService_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	ctx := context.Background()
	user, _ := f.member(t, "Ravenclaw")
	c := f.weeklyCategory(t, user.ID, "100")

	res, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(12, "10"))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Balance.UserPoints)
	assert.Len(t, f.publisher.published(), 1)
}

func TestExpenditureService_NilPublisher(t *testing.T) {
	f := newFixture(t)
	f.spend = NewExpenditureService(f.store, nil, f.caches)
	f.spend.now = func() time.Time { return testNow }
	ctx := context.Background()
	user, _ := f.member(t, "Slytherin")
	c := f.weeklyCategory(t, user.ID, "100")

	res, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(12, "10"))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Balance.UserPoints)
}

func TestExpenditureService_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.member(t, "Gryffindor")
	c := f.weeklyCategory(t, user.ID, "100")

	_, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(12, "0"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = f.spend.Create(ctx, user.ID, c.ID, core.Expenditure{Amount: dec("1")})
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = f.spend.Create(ctx, user.ID, 9999, spendOn(12, "1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.spend.Create(ctx, 9999, c.ID, spendOn(12, "1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	other, err := f.accounts.CreateUser(ctx, "ron", nil)
	require.NoError(t, err)
	_, err = f.spend.Create(ctx, other.ID, c.ID, spendOn(12, "1"))
	assert.ErrorIs(t, err, storage.ErrNotFound, "categories are scoped to their owner")

	assert.Empty(t, f.publisher.published())
}

func TestExpenditureService_DeleteKeepsPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.member(t, "Gryffindor")
	c := f.weeklyCategory(t, user.ID, "100")

	res, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(12, "30"))
	require.NoError(t, err)

	require.NoError(t, f.spend.Delete(ctx, user.ID, res.Expenditure.ID))
	assert.ErrorIs(t, f.spend.Delete(ctx, user.ID, res.Expenditure.ID), storage.ErrNotFound)

	got, err := f.accounts.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Points)

	progress, err := f.reports.Progress(ctx, user.ID, c.ID, "")
	require.NoError(t, err)
	assert.True(t, progress.Spent.IsZero())
}

func TestLoginService_DailyBonus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, house := f.member(t, "Gryffindor")

	res, err := f.logins.RecordLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, points.DailyLoginBonus, res.Outcome.Delta)
	assert.Equal(t, 5, res.Points)

	f.logins.now = func() time.Time { return testNow.Add(time.Hour) }
	res, err = f.logins.RecordLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, res.Outcome.Scored())
	assert.Equal(t, 5, res.Points)

	f.logins.now = func() time.Time { return testNow.Add(24 * time.Hour) }
	res, err = f.logins.RecordLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Points)

	h, err := f.store.GetHouse(ctx, house.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, h.Points)

	msgs := f.publisher.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, points.ReasonDailyLogin, msgs[1].Reason)

	_, err = f.logins.RecordLogin(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCategoryService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.accounts.CreateUser(ctx, "hermione", nil)
	require.NoError(t, err)

	_, err = f.category.Create(ctx, user.ID, "  ", core.SpendingLimit{Amount: dec("10"), Period: core.Daily})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = f.category.Create(ctx, user.ID, "Books", core.SpendingLimit{Amount: dec("10"), Period: "hourly"})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)

	c, err := f.category.Create(ctx, user.ID, " Books ", core.SpendingLimit{Amount: dec("10"), Period: core.Daily})
	require.NoError(t, err)
	assert.Equal(t, "Books", c.Name)

	_, err = f.category.Create(ctx, user.ID, "Books", core.SpendingLimit{Amount: dec("10"), Period: core.Daily})
	assert.ErrorIs(t, err, storage.ErrConflict)

	require.NoError(t, f.category.UpdateLimit(ctx, user.ID, c.ID, core.SpendingLimit{Amount: dec("300"), Period: core.Monthly}))
	assert.ErrorIs(t, f.category.UpdateLimit(ctx, user.ID, c.ID, core.SpendingLimit{Period: core.Monthly}), core.ErrInvalidAmount)
	assert.ErrorIs(t, f.category.UpdateLimit(ctx, user.ID, 9999, core.SpendingLimit{Amount: dec("1"), Period: core.Monthly}), storage.ErrNotFound)

	list, err := f.category.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Limit.Amount.Equal(dec("300")))
	assert.Equal(t, core.Monthly, list[0].Limit.Period)

	_, err = f.category.List(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReportService_ProgressIsInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.member(t, "Gryffindor")
	c := f.weeklyCategory(t, user.ID, "70")

	before, err := f.reports.Progress(ctx, user.ID, c.ID, core.Daily)
	require.NoError(t, err)
	assert.True(t, before.Limit.Equal(dec("10")))
	assert.True(t, before.Spent.IsZero())

	_, err = f.spend.Create(ctx, user.ID, c.ID, spendOn(12, "5"))
	require.NoError(t, err)

	after, err := f.reports.Progress(ctx, user.ID, c.ID, core.Daily)
	require.NoError(t, err)
	assert.True(t, after.Spent.Equal(dec("5")))
	assert.True(t, after.Progress.Equal(dec("50")))

	require.NoError(t, f.category.UpdateLimit(ctx, user.ID, c.ID, core.SpendingLimit{Amount: dec("2"), Period: core.Daily}))
	updated, err := f.reports.Progress(ctx, user.ID, c.ID, core.Daily)
	require.NoError(t, err)
	assert.True(t, updated.OverLimit)

	_, err = f.reports.Progress(ctx, user.ID, c.ID, "fortnightly")
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestReportService_History(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.member(t, "Gryffindor")
	c := f.weeklyCategory(t, user.ID, "100")

	_, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(12, "25"))
	require.NoError(t, err)
	_, err = f.spend.Create(ctx, user.ID, c.ID, spendOn(4, "40"))
	require.NoError(t, err)

	history, err := f.reports.History(ctx, user.ID, c.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, history, DefaultHistoryWindows)

	last := history[len(history)-1]
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), last.Start)
	assert.True(t, last.Spent.Equal(dec("25")))
	assert.True(t, history[len(history)-2].Spent.Equal(dec("40")))

	_, err = f.reports.History(ctx, user.ID, c.ID, "hourly", 3)
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestReportService_Overview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, house := f.member(t, "Gryffindor")
	c := f.weeklyCategory(t, user.ID, "100")
	_, err := f.category.Create(ctx, user.ID, "Rent", core.SpendingLimit{Amount: dec("1200"), Period: core.Monthly})
	require.NoError(t, err)

	_, err = f.spend.Create(ctx, user.ID, c.ID, spendOn(12, "10"))
	require.NoError(t, err)

	o, err := f.reports.Overview(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, o.User.Points)
	require.NotNil(t, o.House)
	assert.Equal(t, house.ID, o.House.ID)
	assert.Equal(t, 5, o.House.Points)
	require.Len(t, o.Categories, 2)

	byName := map[string]core.CategoryProgress{}
	for _, p := range o.Categories {
		byName[p.Name] = p
	}
	assert.Equal(t, core.Weekly, byName["Groceries"].Period)
	assert.True(t, byName["Groceries"].Spent.Equal(dec("10")))
	assert.Equal(t, core.Monthly, byName["Rent"].Period)

	_, err = f.reports.Overview(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.CreateHouse(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyName)

	first, err := f.reports.Standings(ctx)
	require.NoError(t, err)
	assert.Empty(t, first)

	h, err := f.accounts.CreateHouse(ctx, "Gryffindor")
	require.NoError(t, err)
	_, err = f.accounts.CreateHouse(ctx, "Gryffindor")
	assert.ErrorIs(t, err, storage.ErrConflict)

	standings, err := f.reports.Standings(ctx)
	require.NoError(t, err)
	require.Len(t, standings, 1, "house creation clears the cached standings")

	_, err = f.accounts.CreateUser(ctx, "", nil)
	assert.ErrorIs(t, err, core.ErrEmptyUsername)

	missing := int64(9999)
	_, err = f.accounts.CreateUser(ctx, "neville", &missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	u, err := f.accounts.CreateUser(ctx, "neville", &h.ID)
	require.NoError(t, err)
	standings, err = f.reports.Standings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, standings[0].MemberCount)

	_, err = f.logins.RecordLogin(ctx, u.ID)
	require.NoError(t, err)

	unseen, err := f.accounts.Notifications(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Len(t, unseen, 2)

	n, err := f.accounts.MarkNotificationsSeen(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	unseen, err = f.accounts.Notifications(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unseen)

	_, err = f.accounts.Notifications(ctx, 9999, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCachesClose(t *testing.T) {
	ctx := context.Background()
	caches, err := NewCaches(cache.Options{Backend: "ristretto", Size: 10, TTL: time.Minute})
	require.NoError(t, err)

	caches.Standings.Set(ctx, standingsKey, []core.House{{ID: 1, Name: "Hufflepuff"}})
	_, ok := caches.Standings.Get(ctx, standingsKey)
	require.True(t, ok)

	caches.Close()
	_, ok = caches.Standings.Get(ctx, standingsKey)
	assert.False(t, ok, "closed cache serves nothing")

	// The zero value and LRU-backed caches have nothing to release.
	Caches{}.Close()
	testCaches().Close()
}

// pointsOutage fails every points write.
type pointsOutage struct {
	Store
}

func (pointsOutage) ApplyPoints(context.Context, storage.PointsChange) (storage.PointsBalance, error) {
	return storage.PointsBalance{}, errors.New("database is locked")
}

func TestLoginService_FailedBonusKeepsLastLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.member(t, "Ravenclaw")

	broken := NewLoginService(pointsOutage{Store: f.store}, f.publisher, f.caches)
	broken.now = f.logins.now
	_, err := broken.RecordLogin(ctx, user.ID)
	require.Error(t, err)

	got, err := f.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.LastLogin.IsZero(), "last login must not move without the bonus")

	res, err := f.logins.RecordLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, points.DailyLoginBonus, res.Outcome.Delta)
	assert.Equal(t, 5, res.Points)
}

func TestExpenditureService_LogsScoringFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.member(t, "Gryffindor")
	c := f.weeklyCategory(t, user.ID, "100")

	_, err := f.spend.Create(ctx, user.ID, c.ID, spendOn(11, "20"))
	require.NoError(t, err)

	var evaluated map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["msg"] == "Expenditure evaluated" {
			evaluated = rec
		}
	}
	require.NotNil(t, evaluated, "no evaluation record in %s", buf.String())
	assert.Equal(t, applog.OpEvaluate, evaluated[applog.FieldOperation])
	assert.Equal(t, points.BranchWithin.String(), evaluated[applog.FieldBranch])
	assert.Equal(t, float64(points.WithinTargetBonus), evaluated[applog.FieldPointsDelta])
	assert.Equal(t, points.ReasonWithinTarget, evaluated[applog.FieldReason])
	assert.Equal(t, float64(user.ID), evaluated[applog.FieldUserID])
	assert.Equal(t, float64(c.ID), evaluated[applog.FieldCategoryID])
}
