package session

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/earshot-audio/earshot/api"
	"github.com/earshot-audio/earshot/artwork"
	"github.com/earshot-audio/earshot/audiocache"
	"github.com/earshot-audio/earshot/db"
	"github.com/earshot-audio/earshot/events"
	"github.com/earshot-audio/earshot/models"
	"github.com/earshot-audio/earshot/playback"
	"github.com/earshot-audio/earshot/queue"
	"github.com/earshot-audio/earshot/shared"
	"github.com/earshot-audio/earshot/tracker"
)

// Backend is the slice of the remote API the session consumes. The api
// client satisfies it; tests swap in a fake.
type Backend interface {
	Login(username, password string) (models.AuthResponse, error)
	Register(username, email, password string) (models.AuthResponse, error)
	SetToken(token string)

	LoadQueue(excludeIDs []int64, categoryID *int64) ([]models.Clip, error)
	LoadHistory() ([]models.ClipView, error)
	LoadFollows() ([]models.Follow, error)
	LoadCategories() ([]models.Category, error)
	SearchShows(search string) ([]models.Show, error)

	FollowShow(feedID int64, interested bool) (models.Follow, error)
	UnfollowShow(followID int64) error

	GetUserCategoryScores() ([]models.CategoryScore, error)
	UpdateUserCategoryScore(categoryID int64, score float64) (models.CategoryScore, error)
	DeleteUserCategoryScore(scoreID int64) error

	ReportView(clipID int64, percent int) error
	ResolveAsset(mediaKey string) (models.Asset, error)
	ArtworkURL(artworkKey string) string
}

// Session is the top-level orchestrator: one clip queue per category,
// the active category selector, and the engine/tracker/cache trio that
// the queues feed. All mutable session state lives behind one mutex;
// async completions re-check the generation before applying themselves
// so nothing issued before a logout can leak back in afterwards.
type Session struct {
	mu              sync.Mutex
	backend         Backend
	store           db.Store
	cache           *audiocache.Cache
	engine          *playback.Engine
	tracker         *tracker.Tracker
	artwork         *artwork.Cache
	queues          map[int64]*queue.Queue
	active          int64
	categories      []models.Category
	follows         []models.Follow
	scores          []models.CategoryScore
	needsOnboarding bool
	loggedIn        bool
	// resumeOnReady carries the playing state across an end-of-media
	// advance: the next clip starts on its own once it has prepared
	resumeOnReady bool
	generation    uint64
	epoch           uuid.UUID
	scheduler       gocron.Scheduler
}

func New(storageDir string, backend Backend, store db.Store) (*Session, error) {
	s := &Session{
		backend: backend,
		store:   store,
		queues:  map[int64]*queue.Queue{},
		active:  shared.DefaultCategoryID,
		epoch:   uuid.New(),
	}

	cache, err := audiocache.New(shared.AudioCacheSize, audiocache.NewRemoteFactory(backend.ResolveAsset))
	if err != nil {
		return nil, err
	}
	s.cache = cache
	s.engine = playback.NewEngine(cache, &engineSink{session: s})
	s.tracker = tracker.New(backend)
	s.artwork = artwork.NewCache(storageDir, backend.ArtworkURL)

	return s, nil
}

// Start restores persisted local state and kicks off the periodic work.
// With a stored token present the session comes up logged in and
// refreshes itself from the network in the background.
func (s *Session) Start() error {
	token, err := s.store.GetPreference(db.PrefAuthToken)
	if err != nil {
		return err
	}
	if token != "" {
		s.backend.SetToken(token)
		s.mu.Lock()
		s.loggedIn = true
		s.mu.Unlock()
	}

	if rate, err := s.store.GetPreference(db.PrefPlaybackRate); err == nil && rate != "" {
		if parsed, err := strconv.ParseFloat(rate, 64); err == nil {
			s.engine.SetRate(parsed)
		}
	}

	// Cached copies keep the UI warm until the network answers
	if follows, err := s.store.CachedFollows(); err == nil {
		s.mu.Lock()
		s.follows = follows
		s.mu.Unlock()
	}
	if categories, err := s.store.CachedCategories(); err == nil {
		s.mu.Lock()
		s.categories = categories
		s.mu.Unlock()
	}
	if scores, err := s.store.CachedCategoryScores(); err == nil {
		s.mu.Lock()
		s.scores = scores
		s.mu.Unlock()
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}
	scheduler.NewJob(
		gocron.DurationJob(time.Second),
		gocron.NewTask(s.tracker.Tick),
	)
	scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() { s.artwork.CleanOlderThan(30 * 24 * time.Hour) }),
	)
	s.scheduler = scheduler
	scheduler.Start()

	if token != "" {
		go s.Load()
	}

	return nil
}

func (s *Session) Shutdown() {
	s.tracker.StopTracking()
	s.engine.Stop()
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
}

// Login authenticates, adopts the token, and triggers the initial load.
// An AuthError propagates to the caller; everything downstream of a
// successful login degrades quietly instead.
func (s *Session) Login(username, password string) error {
	auth, err := s.backend.Login(username, password)
	if err != nil {
		return err
	}
	return s.adoptAuth(auth)
}

func (s *Session) Register(username, email, password string) error {
	auth, err := s.backend.Register(username, email, password)
	if err != nil {
		return err
	}
	return s.adoptAuth(auth)
}

func (s *Session) adoptAuth(auth models.AuthResponse) error {
	s.backend.SetToken(auth.Token)
	if err := s.store.SetPreference(db.PrefAuthToken, auth.Token); err != nil {
		slog.Error("Failed to persist auth token", slog.String("stack", err.Error()))
	}
	if err := s.store.SetPreference(db.PrefUsername, auth.Username); err != nil {
		slog.Error("Failed to persist username", slog.String("stack", err.Error()))
	}

	s.mu.Lock()
	s.loggedIn = true
	s.epoch = uuid.New()
	s.mu.Unlock()

	return s.Load()
}

// Load fetches history, queue, and follows concurrently and rebuilds
// the default category queue as history followed by fresh clips, with
// the cursor resting on the last-viewed history item. An empty fetched
// queue flags onboarding so the UI can offer a follow picker.
func (s *Session) Load() error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	var (
		history []models.ClipView
		clips   []models.Clip
		follows []models.Follow
		loadErr [3]error
		wg      sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		history, loadErr[0] = s.backend.LoadHistory()
	}()
	go func() {
		defer wg.Done()
		clips, loadErr[1] = s.backend.LoadQueue(nil, nil)
	}()
	go func() {
		defer wg.Done()
		follows, loadErr[2] = s.backend.LoadFollows()
	}()
	wg.Wait()

	for _, err := range loadErr {
		if err != nil {
			// Degrade to whatever did arrive; an empty queue is still
			// a valid session
			slog.Error("Initial load partially failed", slog.String("stack", err.Error()))
		}
	}

	historyClips := make([]models.Clip, 0, len(history))
	for _, view := range history {
		historyClips = append(historyClips, view.Clip)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil
	}
	q := queue.New()
	q.Append(historyClips)
	q.Append(clips)
	cursor := len(historyClips) - 1
	if cursor < 0 {
		cursor = 0
	}
	q.SetCursor(cursor)
	s.queues[shared.DefaultCategoryID] = q
	s.active = shared.DefaultCategoryID
	s.needsOnboarding = len(clips) == 0
	s.follows = follows
	s.mu.Unlock()

	if err := s.store.ReplaceFollows(follows); err != nil {
		slog.Error("Failed to cache follows", slog.String("stack", err.Error()))
	}

	s.playCurrent()
	s.broadcast()
	return nil
}

// AddCategory creates an empty queue for a newly selected category.
// Nothing is fetched until the category is first activated.
func (s *Session) AddCategory(category models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[category.ID]; !ok {
		s.queues[category.ID] = queue.New()
	}
	for _, existing := range s.categories {
		if existing.ID == category.ID {
			return
		}
	}
	s.categories = append(s.categories, category)
}

// SetActiveCategory switches which queue drives the now-playing state,
// loading the queue first if it has never been filled.
func (s *Session) SetActiveCategory(categoryID int64) {
	s.mu.Lock()
	q, ok := s.queues[categoryID]
	if !ok {
		q = queue.New()
		s.queues[categoryID] = q
	}
	s.active = categoryID
	gen := s.generation
	s.mu.Unlock()

	if q.Len() > 0 {
		s.playCurrent()
		s.broadcast()
		return
	}

	go func() {
		q.RequestBackfill(s.queueLoader(gen, categoryPtr(categoryID)))
		if q.Cursor() < 0 && q.Len() > 0 {
			q.SetCursor(0)
		}
		s.mu.Lock()
		current := s.generation == gen && s.active == categoryID
		s.mu.Unlock()
		if current {
			s.playCurrent()
			s.broadcast()
		}
	}()
}

// ReconcileCategories applies the server's idea of which categories the
// user has selected. Queues for dropped categories go away; if the
// active one was dropped, playback falls back to the default feed.
func (s *Session) ReconcileCategories(selected []models.Category) {
	s.mu.Lock()
	keep := map[int64]bool{shared.DefaultCategoryID: true}
	for _, category := range selected {
		keep[category.ID] = true
	}
	for id := range s.queues {
		if !keep[id] {
			delete(s.queues, id)
		}
	}
	activeDropped := !keep[s.active]
	if activeDropped {
		s.active = shared.DefaultCategoryID
	}
	s.categories = selected
	s.mu.Unlock()

	if err := s.store.ReplaceCategories(selected); err != nil {
		slog.Error("Failed to cache categories", slog.String("stack", err.Error()))
	}
	if activeDropped {
		s.playCurrent()
	}
	s.broadcast()
}

// RefreshCategories pulls the server's current category list and
// reconciles the per-category queues against it.
func (s *Session) RefreshCategories() error {
	categories, err := s.backend.LoadCategories()
	if err != nil {
		return err
	}
	s.ReconcileCategories(categories)
	return nil
}

func (s *Session) Categories() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Category(nil), s.categories...)
}

// PlayPause toggles the engine, stopping the tracker on pause so the
// final flush records an accurate resume position.
func (s *Session) PlayPause() {
	switch s.engine.Status() {
	case playback.StatusPlaying:
		s.engine.Pause()
		s.tracker.StopTracking()
	case playback.StatusReady, playback.StatusPaused:
		s.engine.Play()
		s.tracker.StartTracking()
	case playback.StatusIdle:
		// Nothing loaded; try the current cursor
		s.playCurrent()
		s.engine.Play()
	}
	s.broadcastPlayback()
}

func (s *Session) Next() {
	s.moveCursor(1)
}

func (s *Session) Previous() {
	s.moveCursor(-1)
}

func (s *Session) moveCursor(delta int) {
	s.mu.Lock()
	q := s.queues[s.active]
	gen := s.generation
	categoryID := s.active
	s.mu.Unlock()
	if q == nil {
		return
	}

	// Skipping while playing keeps playing; skipping while paused stays
	// paused
	if s.engine.Status() == playback.StatusPlaying {
		s.mu.Lock()
		s.resumeOnReady = true
		s.mu.Unlock()
	}

	before := q.Cursor()
	q.Advance(delta)
	if q.Cursor() != before {
		s.playCurrent()
	} else {
		// At the edge of the feed there is nothing new to load, and a
		// pending end-of-media resume has nowhere to go
		s.mu.Lock()
		s.resumeOnReady = false
		s.mu.Unlock()
	}
	s.broadcast()

	if q.NeedsBackfill() {
		go func() {
			q.RequestBackfill(s.queueLoader(gen, categoryPtr(categoryID)))
			if q.Cursor() < 0 && q.Len() > 0 {
				q.SetCursor(0)
				s.mu.Lock()
				current := s.generation == gen && s.active == categoryID
				s.mu.Unlock()
				if current {
					s.playCurrent()
					s.broadcast()
				}
			}
		}()
	}
}

// consumeResume reads and clears the end-of-media resume intent.
func (s *Session) consumeResume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	resume := s.resumeOnReady
	s.resumeOnReady = false
	return resume
}

func (s *Session) Seek(seconds float64) {
	s.engine.Seek(seconds)
	s.broadcastPlayback()
}

func (s *Session) SeekFraction(fraction float64) {
	s.engine.SeekFraction(fraction)
	s.broadcastPlayback()
}

// SetRate adjusts playback speed and persists it as a preference.
func (s *Session) SetRate(rate float64) {
	s.engine.SetRate(rate)
	if err := s.store.SetPreference(db.PrefPlaybackRate, strconv.FormatFloat(rate, 'f', -1, 64)); err != nil {
		slog.Error("Failed to persist playback rate", slog.String("stack", err.Error()))
	}
}

// Logout is one atomic reset: tracking stops, queues and caches clear,
// persisted local state is wiped, and the generation bumps so any
// response still in flight from the old session gets dropped.
func (s *Session) Logout() {
	s.tracker.StopTracking()
	s.engine.Stop()

	s.mu.Lock()
	s.generation++
	s.epoch = uuid.New()
	s.queues = map[int64]*queue.Queue{}
	s.active = shared.DefaultCategoryID
	s.categories = nil
	s.follows = nil
	s.scores = nil
	s.needsOnboarding = false
	s.loggedIn = false
	s.resumeOnReady = false
	s.mu.Unlock()

	s.cache.Purge()
	if err := s.store.Reset(); err != nil {
		slog.Error("Failed to clear local store on logout", slog.String("stack", err.Error()))
	}
	s.backend.SetToken("")
	s.broadcast()
}

// FollowShow registers interest (or a block) and refreshes the local
// follow cache.
func (s *Session) FollowShow(feedID int64, interested bool) error {
	follow, err := s.backend.FollowShow(feedID, interested)
	if err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.follows[:0]
	for _, existing := range s.follows {
		if existing.Show.ID != follow.Show.ID {
			kept = append(kept, existing)
		}
	}
	s.follows = append(kept, follow)
	snapshot := append([]models.Follow(nil), s.follows...)
	s.mu.Unlock()

	if err := s.store.ReplaceFollows(snapshot); err != nil {
		slog.Error("Failed to cache follows", slog.String("stack", err.Error()))
	}
	s.broadcast()
	return nil
}

func (s *Session) UnfollowShow(followID int64) error {
	if err := s.backend.UnfollowShow(followID); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.follows[:0]
	for _, existing := range s.follows {
		if existing.ID != followID {
			kept = append(kept, existing)
		}
	}
	s.follows = kept
	snapshot := append([]models.Follow(nil), s.follows...)
	s.mu.Unlock()

	if err := s.store.ReplaceFollows(snapshot); err != nil {
		slog.Error("Failed to cache follows", slog.String("stack", err.Error()))
	}
	s.broadcast()
	return nil
}

func (s *Session) Follows() []models.Follow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Follow(nil), s.follows...)
}

func (s *Session) SearchShows(search string) ([]models.Show, error) {
	return s.backend.SearchShows(search)
}

func (s *Session) CategoryScores() []models.CategoryScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CategoryScore(nil), s.scores...)
}

func (s *Session) RefreshCategoryScores() error {
	scores, err := s.backend.GetUserCategoryScores()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.scores = scores
	s.mu.Unlock()
	if err := s.store.ReplaceCategoryScores(scores); err != nil {
		slog.Error("Failed to cache category scores", slog.String("stack", err.Error()))
	}
	return nil
}

func (s *Session) UpdateCategoryScore(categoryID int64, score float64) error {
	updated, err := s.backend.UpdateUserCategoryScore(categoryID, score)
	if err != nil {
		return err
	}

	s.mu.Lock()
	replaced := false
	for i, existing := range s.scores {
		if existing.CategoryID == categoryID {
			s.scores[i] = updated
			replaced = true
			break
		}
	}
	if !replaced {
		s.scores = append(s.scores, updated)
	}
	snapshot := append([]models.CategoryScore(nil), s.scores...)
	s.mu.Unlock()

	if err := s.store.ReplaceCategoryScores(snapshot); err != nil {
		slog.Error("Failed to cache category scores", slog.String("stack", err.Error()))
	}
	return nil
}

func (s *Session) DeleteCategoryScore(scoreID int64) error {
	if err := s.backend.DeleteUserCategoryScore(scoreID); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.scores[:0]
	for _, existing := range s.scores {
		if existing.ID != scoreID {
			kept = append(kept, existing)
		}
	}
	s.scores = kept
	snapshot := append([]models.CategoryScore(nil), s.scores...)
	s.mu.Unlock()

	if err := s.store.ReplaceCategoryScores(snapshot); err != nil {
		slog.Error("Failed to cache category scores", slog.String("stack", err.Error()))
	}
	return nil
}

// CompleteOnboarding closes the follow picker flow once enough shows
// are followed; otherwise the capacity rule bounces it back to the UI.
func (s *Session) CompleteOnboarding() error {
	s.mu.Lock()
	interested := 0
	for _, follow := range s.follows {
		if follow.Interested {
			interested++
		}
	}
	if interested < shared.MinimumFollows {
		s.mu.Unlock()
		return &api.CapacityError{Needed: shared.MinimumFollows, Have: interested}
	}
	s.needsOnboarding = false
	s.mu.Unlock()

	go s.Load()
	return nil
}

func (s *Session) Artwork(show models.Show) (artwork.Artwork, error) {
	return s.artwork.Load(show.ArtworkKey)
}

func (s *Session) NowPlaying() (models.Clip, bool) {
	s.mu.Lock()
	q := s.queues[s.active]
	s.mu.Unlock()
	if q == nil {
		return models.Clip{}, false
	}
	return q.Current()
}

func (s *Session) History() []models.Clip {
	s.mu.Lock()
	q := s.queues[s.active]
	s.mu.Unlock()
	if q == nil {
		return nil
	}
	return q.History()
}

func (s *Session) UpNext() []models.Clip {
	s.mu.Lock()
	q := s.queues[s.active]
	s.mu.Unlock()
	if q == nil {
		return nil
	}
	return q.UpNext()
}

func (s *Session) NeedsOnboarding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsOnboarding
}

func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

func (s *Session) ActiveCategory() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// playCurrent pushes the cursor's clip into the engine and warms the
// preload window around it: the next few clips plus one behind, so both
// skipping ahead and stepping back feel instant.
func (s *Session) playCurrent() {
	s.mu.Lock()
	q := s.queues[s.active]
	s.mu.Unlock()
	if q == nil {
		return
	}

	clip, ok := q.Current()
	if !ok {
		return
	}

	s.engine.Load(clip.MediaKey)
	s.cache.Preload(preloadWindow(q))
	s.tracker.SetCurrentClip(clip)
	s.tracker.StartTracking()
	s.broadcastPlayback()
}

func preloadWindow(q *queue.Queue) []string {
	clips := q.All()
	cursor := q.Cursor()
	if cursor < 0 {
		return nil
	}
	var keys []string
	for i := cursor + 1; i <= cursor+shared.PreloadAhead && i < len(clips); i++ {
		keys = append(keys, clips[i].MediaKey)
	}
	for i := cursor - 1; i >= cursor-shared.PreloadBehind && i >= 0; i-- {
		keys = append(keys, clips[i].MediaKey)
	}
	return keys
}

// queueLoader wraps the backend queue fetch with a staleness check so a
// response issued before a logout can never repopulate a queue.
func (s *Session) queueLoader(gen uint64, categoryID *int64) queue.Loader {
	return func(excludeIDs []int64) ([]models.Clip, error) {
		clips, err := s.backend.LoadQueue(excludeIDs, categoryID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		stale := s.generation != gen
		s.mu.Unlock()
		if stale {
			return nil, nil
		}
		return clips, nil
	}
}

func categoryPtr(categoryID int64) *int64 {
	if categoryID == shared.DefaultCategoryID {
		return nil
	}
	return &categoryID
}

// State is the rehydration snapshot pushed to presentation clients.
type State struct {
	LoggedIn        bool            `json:"logged_in"`
	NeedsOnboarding bool            `json:"needs_onboarding"`
	ActiveCategory  int64           `json:"active_category"`
	NowPlaying      *models.Clip    `json:"now_playing,omitempty"`
	Status          playback.Status `json:"status"`
	Position        float64         `json:"position"`
	Duration        float64         `json:"duration"`
	Rate            float64         `json:"rate"`
	History         []models.Clip   `json:"history"`
	UpNext          []models.Clip   `json:"up_next"`
}

func (s *Session) Snapshot() State {
	state := State{
		Status:   s.engine.Status(),
		Position: s.engine.Position(),
		Duration: s.engine.Duration(),
		Rate:     s.engine.Rate(),
	}

	s.mu.Lock()
	state.LoggedIn = s.loggedIn
	state.NeedsOnboarding = s.needsOnboarding
	state.ActiveCategory = s.active
	q := s.queues[s.active]
	s.mu.Unlock()

	if q != nil {
		if clip, ok := q.Current(); ok {
			state.NowPlaying = &clip
		}
		state.History = q.History()
		state.UpNext = q.UpNext()
	}
	return state
}

func (s *Session) broadcast() {
	events.Publish(shared.StreamSession, s.Snapshot())
}

type playbackFrame struct {
	ClipID   int64           `json:"clip_id,omitempty"`
	Status   playback.Status `json:"status"`
	Position float64         `json:"position"`
	Duration float64         `json:"duration"`
}

func (s *Session) broadcastPlayback() {
	frame := playbackFrame{
		Status:   s.engine.Status(),
		Position: s.engine.Position(),
		Duration: s.engine.Duration(),
	}
	if clip, ok := s.NowPlaying(); ok {
		frame.ClipID = clip.ID
	}
	events.Publish(shared.StreamPlayback, frame)
}
