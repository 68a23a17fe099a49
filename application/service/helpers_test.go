package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atas-platform/atas/application/handler/indexing"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/notification"
	"github.com/atas-platform/atas/domain/task"
	"github.com/atas-platform/atas/infrastructure/persistence"
	"github.com/atas-platform/atas/internal/database"
	"github.com/atas-platform/atas/internal/testdb"
)

// keywordGenerator embeds text on three axes (weekday, evening, morning)
// by counting keywords, so paraphrases land close together.
type keywordGenerator struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

var keywordAxes = map[string]int{
	"monday": 0, "tuesday": 0, "wednesday": 0, "thursday": 0, "friday": 0, "weekday": 0, "weekdays": 0,
	"evening": 1, "evenings": 1, "night": 1, "after": 1, "7pm": 1, "8pm": 1,
	"morning": 2, "mornings": 2, "9am": 2, "breakfast": 2,
}

func (g *keywordGenerator) Generate(_ context.Context, text string) ([]float32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return nil, false
	}
	vec := make([]float32, 3)
	nonZero := false
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if axis, ok := keywordAxes[w]; ok {
			vec[axis]++
			nonZero = true
		}
	}
	if !nonZero {
		return nil, false
	}
	return vec, true
}

func (g *keywordGenerator) setFail(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = fail
}

func (g *keywordGenerator) Model() string  { return "keywords" }
func (g *keywordGenerator) Dimension() int { return 3 }

type recordingPublisher struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n notification.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) kinds() []notification.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notification.Kind, len(p.sent))
	for i, n := range p.sent {
		out[i] = n.Kind()
	}
	return out
}

// env wires every service against one in-memory database.
type env struct {
	db             database.Database
	gen            *keywordGenerator
	publisher      *recordingPublisher
	tasks          persistence.TaskStore
	profileVectors embedding.Store
	eventVectors   embedding.Store

	queue         *Queue
	worker        *Worker
	auth          *Auth
	profiles      *Profiles
	events        *Events
	bookings      *Bookings
	organizations *Organizations
	notifications *Notifications
	search        *Search
	maintenance   *Maintenance
	community     *Community
}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := quietLogger()
	db := testdb.New(t)

	users := persistence.NewUserStore(db)
	profileStore := persistence.NewProfileStore(db)
	eventStore := persistence.NewEventStore(db)
	bookingStore := persistence.NewBookingStore(db)
	orgStore := persistence.NewOrganizationStore(db)
	tasks := persistence.NewTaskStore(db)

	profileVectors, err := persistence.NewEmbeddingStore(ctx, db, embedding.KindProfile, 3, logger)
	require.NoError(t, err)
	eventVectors, err := persistence.NewEmbeddingStore(ctx, db, embedding.KindEvent, 3, logger)
	require.NoError(t, err)

	e := &env{
		db:             db,
		gen:            &keywordGenerator{},
		publisher:      &recordingPublisher{},
		tasks:          tasks,
		profileVectors: profileVectors,
		eventVectors:   eventVectors,
	}

	e.queue = NewQueue(tasks, logger)
	e.notifications = NewNotifications(persistence.NewNotificationStore(db), e.publisher, logger)
	e.auth = NewAuth(users, profileStore, "test-secret", time.Hour, logger, WithBcryptCost(bcrypt.MinCost))
	e.profiles = NewProfiles(users, profileStore, e.queue, logger)
	e.events = NewEvents(eventStore, bookingStore, orgStore, eventVectors, e.queue, e.notifications, logger)
	e.bookings = NewBookings(eventStore, bookingStore, e.notifications, logger)
	e.organizations = NewOrganizations(orgStore, users, e.notifications, logger)
	e.search = NewSearch(e.gen, profileVectors, eventVectors, profileStore, eventStore, 10, 2.0, logger)
	e.maintenance = NewMaintenance(profileVectors, eventVectors, profileStore, eventStore, e.queue, e.gen, logger)
	e.community = NewCommunity(persistence.NewCommunityStore(db), e.notifications, logger)

	registry := NewRegistry()
	profileHandler, err := indexing.NewCreateEmbedding(indexing.NewProfileText(profileStore), e.gen, profileVectors, logger)
	require.NoError(t, err)
	eventHandler, err := indexing.NewCreateEmbedding(indexing.NewEventText(eventStore), e.gen, eventVectors, logger)
	require.NoError(t, err)
	registry.Register(task.OperationEmbedProfile, profileHandler)
	registry.Register(task.OperationEmbedEvent, eventHandler)
	e.worker = NewWorker(tasks, registry, logger)

	return e
}

// drain runs queued tasks until the queue is empty.
func (e *env) drain(t *testing.T) int {
	t.Helper()
	n := 0
	for {
		processed, err := e.worker.ProcessOne(context.Background())
		require.NoError(t, err)
		if !processed {
			return n
		}
		n++
	}
}

// register creates a user and returns it as an Actor.
func (e *env) register(t *testing.T, email, name string, role account.Role) Actor {
	t.Helper()
	s, err := e.auth.Register(context.Background(), RegisterParams{
		Email: email, Password: "correct horse", FullName: name, Role: string(role),
	})
	require.NoError(t, err)
	return Actor{UserID: s.User.ID(), Role: s.User.Role()}
}

// expert registers an expert with the given availability.
func (e *env) expert(t *testing.T, email, name, availability string, visibility account.Visibility) Actor {
	t.Helper()
	a := e.register(t, email, name, account.RoleExpert)
	title := "Engineer"
	_, err := e.profiles.Update(context.Background(), a, account.ProfileUpdate{
		Title: &title, Availability: &availability, Visibility: &visibility,
	})
	require.NoError(t, err)
	return a
}
