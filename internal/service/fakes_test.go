package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/learnsync/internal/model"
	"github.com/dtroode/learnsync/internal/snapshot"
	"github.com/dtroode/learnsync/internal/testutil"
	"github.com/dtroode/learnsync/internal/token"
)

// remoteStore is an in-memory stand-in for the postgres repositories.
// Setting down makes every call fail with model.ErrUnreachable.
type remoteStore struct {
	mu           sync.Mutex
	down         bool
	identities   map[string]model.Identity
	tokens       map[string]model.RefreshToken
	profiles     map[string]model.ProfileRow
	enrollments  map[string]map[string]model.Enrollment
	completions  map[string]model.Completion
	failProfiles bool
}

func newRemoteStore() *remoteStore {
	return &remoteStore{
		identities:  make(map[string]model.Identity),
		tokens:      make(map[string]model.RefreshToken),
		profiles:    make(map[string]model.ProfileRow),
		enrollments: make(map[string]map[string]model.Enrollment),
		completions: make(map[string]model.Completion),
	}
}

func (r *remoteStore) setDown(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = down
}

func (r *remoteStore) lock() error {
	r.mu.Lock()
	if r.down {
		r.mu.Unlock()
		return model.ErrUnreachable
	}
	return nil
}

type remoteIdentities struct{ *remoteStore }

func (r remoteIdentities) GetByEmail(_ context.Context, email string) (model.Identity, error) {
	if err := r.lock(); err != nil {
		return model.Identity{}, err
	}
	defer r.mu.Unlock()
	for _, i := range r.identities {
		if i.Email == email {
			return i, nil
		}
	}
	return model.Identity{}, model.ErrNotFound
}

func (r remoteIdentities) GetByID(_ context.Context, id string) (model.Identity, error) {
	if err := r.lock(); err != nil {
		return model.Identity{}, err
	}
	defer r.mu.Unlock()
	i, ok := r.identities[id]
	if !ok {
		return model.Identity{}, model.ErrNotFound
	}
	return i, nil
}

func (r remoteIdentities) Create(_ context.Context, identity model.Identity) (model.Identity, error) {
	if err := r.lock(); err != nil {
		return model.Identity{}, err
	}
	defer r.mu.Unlock()
	for _, i := range r.identities {
		if i.Email == identity.Email {
			return model.Identity{}, model.ErrDuplicate
		}
	}
	r.identities[identity.ID] = identity
	return identity, nil
}

func (r remoteIdentities) Confirm(_ context.Context, email string, at time.Time) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	for id, i := range r.identities {
		if i.Email == email {
			i.ConfirmedAt = &at
			r.identities[id] = i
			return nil
		}
	}
	return model.ErrNotFound
}

func (r remoteIdentities) Delete(_ context.Context, id string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	delete(r.identities, id)
	return nil
}

type remoteTokens struct{ *remoteStore }

func (r remoteTokens) Create(_ context.Context, t model.RefreshToken) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	r.tokens[t.JTI] = t
	return nil
}

func (r remoteTokens) GetByJTI(_ context.Context, jti string) (model.RefreshToken, error) {
	if err := r.lock(); err != nil {
		return model.RefreshToken{}, err
	}
	defer r.mu.Unlock()
	t, ok := r.tokens[jti]
	if !ok {
		return model.RefreshToken{}, model.ErrNotFound
	}
	return t, nil
}

func (r remoteTokens) Rotate(_ context.Context, oldJTI string, next model.RefreshToken) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	old, ok := r.tokens[oldJTI]
	if !ok {
		return model.ErrNotFound
	}
	if old.RevokedAt != nil {
		return model.ErrTokenRevoked
	}
	now := time.Now()
	old.RevokedAt = &now
	r.tokens[oldJTI] = old
	r.tokens[next.JTI] = next
	return nil
}

func (r remoteTokens) RevokeByJTI(_ context.Context, jti string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	if t, ok := r.tokens[jti]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
		r.tokens[jti] = t
	}
	return nil
}

func (r remoteTokens) RevokeAllByUser(_ context.Context, userID string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	now := time.Now()
	for jti, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.tokens[jti] = t
		}
	}
	return nil
}

type remoteProfiles struct{ *remoteStore }

func (r remoteProfiles) Create(_ context.Context, row model.ProfileRow) (model.ProfileRow, error) {
	if err := r.lock(); err != nil {
		return model.ProfileRow{}, err
	}
	defer r.mu.Unlock()
	if r.failProfiles {
		return model.ProfileRow{}, model.ErrUnreachable
	}
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	r.profiles[row.ID] = row
	return row, nil
}

func (r remoteProfiles) GetByID(_ context.Context, id string) (model.ProfileRow, error) {
	if err := r.lock(); err != nil {
		return model.ProfileRow{}, err
	}
	defer r.mu.Unlock()
	row, ok := r.profiles[id]
	if !ok {
		return model.ProfileRow{}, model.ErrNotFound
	}
	return row, nil
}

func (r remoteProfiles) Update(_ context.Context, id string, patch model.ProfilePatch) (model.ProfileRow, error) {
	if err := r.lock(); err != nil {
		return model.ProfileRow{}, err
	}
	defer r.mu.Unlock()
	row, ok := r.profiles[id]
	if !ok {
		return model.ProfileRow{}, model.ErrNotFound
	}
	row.Profile = patch.Apply(row.Profile)
	row.UpdatedAt = time.Now()
	r.profiles[id] = row
	return row, nil
}

type remoteEnrollments struct{ *remoteStore }

func (r remoteEnrollments) listLocked(userID string) []model.Enrollment {
	rows := make([]model.Enrollment, 0, len(r.enrollments[userID]))
	for _, e := range r.enrollments[userID] {
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CourseID < rows[j].CourseID })
	return rows
}

func (r remoteEnrollments) ListByUser(_ context.Context, userID string) ([]model.Enrollment, error) {
	if err := r.lock(); err != nil {
		return nil, err
	}
	defer r.mu.Unlock()
	return r.listLocked(userID), nil
}

func (r remoteEnrollments) Enroll(_ context.Context, userID string, courseIDs []string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	if r.enrollments[userID] == nil {
		r.enrollments[userID] = make(map[string]model.Enrollment)
	}
	for _, id := range courseIDs {
		if _, ok := r.enrollments[userID][id]; ok {
			continue
		}
		r.enrollments[userID][id] = model.Enrollment{
			UserID: userID, CourseID: id, Status: model.EnrollmentStatusEnrolled, EnrolledAt: time.Now(),
		}
	}
	return nil
}

func (r remoteEnrollments) MarkCompleted(_ context.Context, userID, courseID string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	if r.enrollments[userID] == nil {
		r.enrollments[userID] = make(map[string]model.Enrollment)
	}
	now := time.Now()
	e := r.enrollments[userID][courseID]
	e.UserID, e.CourseID, e.Status, e.Progress = userID, courseID, model.EnrollmentStatusCompleted, 100
	if e.CompletedAt == nil {
		e.CompletedAt = &now
	}
	r.enrollments[userID][courseID] = e
	return nil
}

func (r remoteEnrollments) LoadAccount(_ context.Context, userID string) (model.ProfileRow, []model.Enrollment, error) {
	if err := r.lock(); err != nil {
		return model.ProfileRow{}, nil, err
	}
	defer r.mu.Unlock()
	row, ok := r.profiles[userID]
	if !ok {
		return model.ProfileRow{}, nil, model.ErrNotFound
	}
	return row, r.listLocked(userID), nil
}

type remoteCompletions struct{ *remoteStore }

func completionKey(userID, courseID string) string {
	return userID + "/" + courseID
}

func (r remoteCompletions) Upsert(_ context.Context, userID, courseID string) (model.Completion, bool, error) {
	if err := r.lock(); err != nil {
		return model.Completion{}, false, err
	}
	defer r.mu.Unlock()
	if c, ok := r.completions[completionKey(userID, courseID)]; ok {
		return c, false, nil
	}
	c := model.Completion{UserID: userID, CourseID: courseID, CompletedAt: time.Now()}
	r.completions[completionKey(userID, courseID)] = c
	return c, true, nil
}

func (r remoteCompletions) MarkCertificateIssued(_ context.Context, userID, courseID, certificateID string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	c, ok := r.completions[completionKey(userID, courseID)]
	if !ok {
		return model.ErrNotFound
	}
	now := time.Now()
	c.CertificateID = &certificateID
	c.CertificateIssuedAt = &now
	r.completions[completionKey(userID, courseID)] = c
	return nil
}

func (r remoteCompletions) ListPendingCertificates(_ context.Context, limit int) ([]model.Completion, error) {
	if err := r.lock(); err != nil {
		return nil, err
	}
	defer r.mu.Unlock()
	var pending []model.Completion
	for _, c := range r.completions {
		if !c.CertificateIssued() {
			pending = append(pending, c)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return completionKey(pending[i].UserID, pending[i].CourseID) < completionKey(pending[j].UserID, pending[j].CourseID)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// countingIssuer records every issuance and fails while err is set.
type countingIssuer struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newCountingIssuer() *countingIssuer {
	return &countingIssuer{calls: make(map[string]int)}
}

func (c *countingIssuer) Issue(_ context.Context, userID, courseID string) (model.Certificate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[completionKey(userID, courseID)]++
	if c.err != nil {
		return model.Certificate{}, c.err
	}
	return model.Certificate{ID: uuid.NewString(), UserID: userID, CourseID: courseID, Code: "LS-" + strings.ToUpper(courseID)}, nil
}

func (c *countingIssuer) count(userID, courseID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[completionKey(userID, courseID)]
}

func (c *countingIssuer) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// harness wires every service over the in-memory remote and a memory snapshot.
type harness struct {
	remote   *remoteStore
	kv       *snapshot.MemoryStore
	snapshot *snapshot.Snapshot
	issuer   *countingIssuer
	identity *Identity
	gateway  *Gateway
	ledger   *Ledger
	profile  *Profile
}

func newHarness() *harness {
	log := testutil.MakeNoopLogger()
	remote := newRemoteStore()
	kv := snapshot.NewMemoryStore()
	snap := snapshot.New(kv)
	issuer := newCountingIssuer()

	identity := NewIdentity(remoteIdentities{remote}, remoteTokens{remote}, token.NewJWT("test-secret"), false, bcrypt.MinCost, log)
	enrollments := remoteEnrollments{remote}

	return &harness{
		remote:   remote,
		kv:       kv,
		snapshot: snap,
		issuer:   issuer,
		identity: identity,
		gateway:  NewGateway(identity, remoteProfiles{remote}, enrollments, snap, nil, bcrypt.MinCost, log),
		ledger:   NewLedger(enrollments, remoteCompletions{remote}, issuer, snap, nil, log),
		profile:  NewProfile(remoteProfiles{remote}, snap, log),
	}
}

func (h *harness) manager(mode model.BackendMode) *SessionManager {
	return NewSessionManager(mode, h.gateway, h.ledger, h.profile, h.snapshot, testutil.MakeNoopLogger())
}

func registerData(email string) model.RegisterData {
	return model.RegisterData{
		Email:    email,
		Password: "secret-password",
		Name:     "Ada Lovelace",
		Phone:    "+44 20 0000 0000",
		Role:     model.RoleLearner,
	}
}
