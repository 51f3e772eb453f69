package activitypub

import (
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
)

// MockDatabase is an in-memory mock implementation of the Database interface for testing.
// It stores data in maps and provides full CRUD operations without requiring a real database.
type MockDatabase struct {
	mu sync.RWMutex

	// Storage maps
	Accounts         map[uuid.UUID]*domain.Account
	AccountsByUser   map[string]*domain.Account
	RemoteAccounts   map[uuid.UUID]*domain.RemoteAccount
	RemoteByActor    map[string]*domain.RemoteAccount
	Follows          map[uuid.UUID]*domain.Follow
	FollowsByURI     map[string]*domain.Follow
	Statuses         map[uuid.UUID]*domain.Status
	StatusesByObject map[string]*domain.Status
	Attachments      map[uuid.UUID]*domain.Attachment
	Favourites       map[uuid.UUID]*domain.Favourite
	Reblogs          map[uuid.UUID]*domain.Reblog
	Activities       map[uuid.UUID]*domain.Activity
	ActivitiesByURI  map[string]*domain.Activity
	Notifications    []*domain.Notification
	Mentions         []*domain.Mention

	// Error injection for testing error handling
	ForceError error

	// One-shot error for the next CreateFollow call, cleared after use
	CreateFollowErr error
}

// NewMockDatabase creates a new mock database with initialized maps
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		Accounts:         make(map[uuid.UUID]*domain.Account),
		AccountsByUser:   make(map[string]*domain.Account),
		RemoteAccounts:   make(map[uuid.UUID]*domain.RemoteAccount),
		RemoteByActor:    make(map[string]*domain.RemoteAccount),
		Follows:          make(map[uuid.UUID]*domain.Follow),
		FollowsByURI:     make(map[string]*domain.Follow),
		Statuses:         make(map[uuid.UUID]*domain.Status),
		StatusesByObject: make(map[string]*domain.Status),
		Attachments:      make(map[uuid.UUID]*domain.Attachment),
		Favourites:       make(map[uuid.UUID]*domain.Favourite),
		Reblogs:          make(map[uuid.UUID]*domain.Reblog),
		Activities:       make(map[uuid.UUID]*domain.Activity),
		ActivitiesByURI:  make(map[string]*domain.Activity),
	}
}

// SetForceError sets an error to be returned by all operations
func (m *MockDatabase) SetForceError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForceError = err
}

// AddAccount adds an account to the mock database
func (m *MockDatabase) AddAccount(acc *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accounts[acc.Id] = acc
	m.AccountsByUser[acc.Username] = acc
}

// AddRemoteAccount adds a remote account to the mock database
func (m *MockDatabase) AddRemoteAccount(acc *domain.RemoteAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoteAccounts[acc.Id] = acc
	m.RemoteByActor[acc.ActorURI] = acc
}

// AddFollow adds a follow relationship to the mock database
func (m *MockDatabase) AddFollow(follow *domain.Follow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Follows[follow.Id] = follow
	if follow.URI != "" {
		m.FollowsByURI[follow.URI] = follow
	}
}

// AddStatus adds a status to the mock database
func (m *MockDatabase) AddStatus(status *domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses[status.Id] = status
	if status.ObjectURI != "" {
		m.StatusesByObject[status.ObjectURI] = status
	}
}

// AddActivity adds an activity to the mock database
func (m *MockDatabase) AddActivity(activity *domain.Activity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Activities[activity.Id] = activity
	if activity.ActivityURI != "" {
		m.ActivitiesByURI[activity.ActivityURI] = activity
	}
}

// Account operations

func (m *MockDatabase) ReadAccByUsername(username string) (error, *domain.Account) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	acc, ok := m.AccountsByUser[username]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, acc
}

func (m *MockDatabase) ReadAccById(id uuid.UUID) (error, *domain.Account) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	acc, ok := m.Accounts[id]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, acc
}

// Remote account operations

func (m *MockDatabase) ReadRemoteAccountByActorURI(actorURI string) (error, *domain.RemoteAccount) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	acc, ok := m.RemoteByActor[actorURI]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, acc
}

func (m *MockDatabase) ReadRemoteAccountById(id uuid.UUID) (error, *domain.RemoteAccount) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	acc, ok := m.RemoteAccounts[id]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, acc
}

func (m *MockDatabase) CreateRemoteAccount(acc *domain.RemoteAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.RemoteAccounts[acc.Id] = acc
	m.RemoteByActor[acc.ActorURI] = acc
	return nil
}

func (m *MockDatabase) UpdateRemoteAccount(acc *domain.RemoteAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.RemoteAccounts[acc.Id] = acc
	m.RemoteByActor[acc.ActorURI] = acc
	return nil
}

func (m *MockDatabase) DeleteRemoteAccount(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if acc, ok := m.RemoteAccounts[id]; ok {
		delete(m.RemoteByActor, acc.ActorURI)
	}
	delete(m.RemoteAccounts, id)
	return nil
}

func (m *MockDatabase) InvalidateRemoteAccountKey(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if acc, ok := m.RemoteAccounts[id]; ok {
		acc.LastFetchedAt = epoch()
	}
	return nil
}

// Follow operations

func (m *MockDatabase) CreateFollow(follow *domain.Follow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if m.CreateFollowErr != nil {
		err := m.CreateFollowErr
		m.CreateFollowErr = nil
		return err
	}
	m.Follows[follow.Id] = follow
	if follow.URI != "" {
		m.FollowsByURI[follow.URI] = follow
	}
	return nil
}

func (m *MockDatabase) ReadFollowByURI(uri string) (error, *domain.Follow) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	follow, ok := m.FollowsByURI[uri]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, follow
}

func (m *MockDatabase) ReadFollowByAccountIds(accountId, targetAccountId uuid.UUID) (error, *domain.Follow) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	for _, follow := range m.Follows {
		if follow.AccountId == accountId && follow.TargetAccountId == targetAccountId {
			return nil, follow
		}
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) DeleteFollowByURI(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if follow, ok := m.FollowsByURI[uri]; ok {
		delete(m.Follows, follow.Id)
	}
	delete(m.FollowsByURI, uri)
	return nil
}

func (m *MockDatabase) DeleteFollowByAccountIds(accountId, targetAccountId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for id, follow := range m.Follows {
		if follow.AccountId == accountId && follow.TargetAccountId == targetAccountId {
			if follow.URI != "" {
				delete(m.FollowsByURI, follow.URI)
			}
			delete(m.Follows, id)
		}
	}
	return nil
}

func (m *MockDatabase) ApproveFollowByURI(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if follow, ok := m.FollowsByURI[uri]; ok {
		follow.Approved = true
	}
	return nil
}

func (m *MockDatabase) ApproveFollowById(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if follow, ok := m.Follows[id]; ok {
		follow.Approved = true
	}
	return nil
}

func (m *MockDatabase) ReadFollowersByAccountId(accountId uuid.UUID) (error, *[]domain.Follow) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	var followers []domain.Follow
	for _, follow := range m.Follows {
		if follow.TargetAccountId == accountId && follow.Approved {
			followers = append(followers, *follow)
		}
	}
	return nil, &followers
}

func (m *MockDatabase) DeleteFollowsByAccountId(accountId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for id, follow := range m.Follows {
		if follow.AccountId == accountId || follow.TargetAccountId == accountId {
			if follow.URI != "" {
				delete(m.FollowsByURI, follow.URI)
			}
			delete(m.Follows, id)
		}
	}
	return nil
}

// Status operations

func (m *MockDatabase) CreateStatus(status *domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Statuses[status.Id] = status
	if status.ObjectURI != "" {
		m.StatusesByObject[status.ObjectURI] = status
	}
	return nil
}

func (m *MockDatabase) ReadStatusById(id uuid.UUID) (error, *domain.Status) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	status, ok := m.Statuses[id]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, status
}

func (m *MockDatabase) ReadStatusByObjectURI(objectURI string) (error, *domain.Status) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	status, ok := m.StatusesByObject[objectURI]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, status
}

func (m *MockDatabase) ReadStatusByActivityURI(activityURI string) (error, *domain.Status) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	for _, status := range m.Statuses {
		if status.ActivityURI == activityURI {
			return nil, status
		}
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) UpdateStatusContent(id uuid.UUID, content string, sensitive bool, contentWarning string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if status, ok := m.Statuses[id]; ok {
		status.Content = content
		status.Sensitive = sensitive
		status.ContentWarning = contentWarning
		now := timeNow()
		status.UpdatedAt = &now
	}
	return nil
}

func (m *MockDatabase) DeleteStatusById(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if status, ok := m.Statuses[id]; ok {
		delete(m.StatusesByObject, status.ObjectURI)
	}
	delete(m.Statuses, id)
	for attId, att := range m.Attachments {
		if att.StatusId == id {
			delete(m.Attachments, attId)
		}
	}
	return nil
}

func (m *MockDatabase) DeleteStatusesByAccountId(accountId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for id, status := range m.Statuses {
		if status.AccountId == accountId {
			delete(m.StatusesByObject, status.ObjectURI)
			delete(m.Statuses, id)
		}
	}
	return nil
}

func (m *MockDatabase) IncrementFavouriteCount(statusId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if status, ok := m.Statuses[statusId]; ok {
		status.FavouriteCount++
	}
	return nil
}

func (m *MockDatabase) DecrementFavouriteCount(statusId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if status, ok := m.Statuses[statusId]; ok && status.FavouriteCount > 0 {
		status.FavouriteCount--
	}
	return nil
}

func (m *MockDatabase) IncrementReblogCount(statusId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if status, ok := m.Statuses[statusId]; ok {
		status.ReblogCount++
	}
	return nil
}

func (m *MockDatabase) DecrementReblogCount(statusId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if status, ok := m.Statuses[statusId]; ok && status.ReblogCount > 0 {
		status.ReblogCount--
	}
	return nil
}

func (m *MockDatabase) IncrementReplyCountByURI(parentURI string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if status, ok := m.StatusesByObject[parentURI]; ok {
		status.ReplyCount++
	}
	return nil
}

// Attachment operations

func (m *MockDatabase) CreateAttachment(att *domain.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Attachments[att.Id] = att
	return nil
}

func (m *MockDatabase) ReadAttachmentsByStatusId(statusId uuid.UUID) (error, *[]domain.Attachment) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	var atts []domain.Attachment
	for _, att := range m.Attachments {
		if att.StatusId == statusId {
			atts = append(atts, *att)
		}
	}
	return nil, &atts
}

// Favourite operations

func (m *MockDatabase) CreateFavourite(fav *domain.Favourite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Favourites[fav.Id] = fav
	return nil
}

func (m *MockDatabase) HasFavourite(accountId, statusId uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return false, m.ForceError
	}
	for _, fav := range m.Favourites {
		if fav.AccountId == accountId && fav.StatusId == statusId {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDatabase) ReadFavourite(accountId, statusId uuid.UUID) (error, *domain.Favourite) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	for _, fav := range m.Favourites {
		if fav.AccountId == accountId && fav.StatusId == statusId {
			return nil, fav
		}
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) DeleteFavourite(accountId, statusId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for id, fav := range m.Favourites {
		if fav.AccountId == accountId && fav.StatusId == statusId {
			delete(m.Favourites, id)
		}
	}
	return nil
}

// Reblog operations

func (m *MockDatabase) CreateReblog(reblog *domain.Reblog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Reblogs[reblog.Id] = reblog
	return nil
}

func (m *MockDatabase) HasReblog(accountId, statusId uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return false, m.ForceError
	}
	for _, reblog := range m.Reblogs {
		if reblog.AccountId == accountId && reblog.StatusId == statusId {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDatabase) ReadReblog(accountId, statusId uuid.UUID) (error, *domain.Reblog) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	for _, reblog := range m.Reblogs {
		if reblog.AccountId == accountId && reblog.StatusId == statusId {
			return nil, reblog
		}
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) DeleteReblog(accountId, statusId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for id, reblog := range m.Reblogs {
		if reblog.AccountId == accountId && reblog.StatusId == statusId {
			delete(m.Reblogs, id)
		}
	}
	return nil
}

// Activity operations

func (m *MockDatabase) CreateActivity(activity *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if _, exists := m.ActivitiesByURI[activity.ActivityURI]; exists {
		return errUniqueConstraint
	}
	m.Activities[activity.Id] = activity
	m.ActivitiesByURI[activity.ActivityURI] = activity
	return nil
}

func (m *MockDatabase) UpdateActivity(activity *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Activities[activity.Id] = activity
	m.ActivitiesByURI[activity.ActivityURI] = activity
	return nil
}

func (m *MockDatabase) ReadActivityByURI(uri string) (error, *domain.Activity) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	activity, ok := m.ActivitiesByURI[uri]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, activity
}

func (m *MockDatabase) ReadActivityByObjectURI(objectURI string) (error, *domain.Activity) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	for _, activity := range m.Activities {
		if activity.ObjectURI == objectURI {
			return nil, activity
		}
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) DeleteActivity(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if activity, ok := m.Activities[id]; ok {
		delete(m.ActivitiesByURI, activity.ActivityURI)
	}
	delete(m.Activities, id)
	return nil
}

// Notification and mention operations

func (m *MockDatabase) CreateNotification(notification *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Notifications = append(m.Notifications, notification)
	return nil
}

func (m *MockDatabase) CreateMention(mention *domain.Mention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Mentions = append(m.Mentions, mention)
	return nil
}

// Ensure MockDatabase implements Database interface
var _ Database = (*MockDatabase)(nil)
