package activitypub

import (
	"github.com/google/uuid"
	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/domain"
)

// DBWrapper wraps the real database to implement the Database interface.
// This adapter allows the production code to use the existing db.GetDB() singleton
// while also supporting dependency injection for tests.
type DBWrapper struct {
	db *db.DB
}

// NewDBWrapper creates a new database wrapper around the singleton database
func NewDBWrapper() *DBWrapper {
	return &DBWrapper{db: db.GetDB()}
}

// Account operations

func (w *DBWrapper) ReadAccByUsername(username string) (error, *domain.Account) {
	return w.db.ReadAccByUsername(username)
}

func (w *DBWrapper) ReadAccById(id uuid.UUID) (error, *domain.Account) {
	return w.db.ReadAccById(id)
}

// Remote account operations

func (w *DBWrapper) ReadRemoteAccountByActorURI(actorURI string) (error, *domain.RemoteAccount) {
	return w.db.ReadRemoteAccountByActorURI(actorURI)
}

func (w *DBWrapper) ReadRemoteAccountById(id uuid.UUID) (error, *domain.RemoteAccount) {
	return w.db.ReadRemoteAccountById(id)
}

func (w *DBWrapper) CreateRemoteAccount(acc *domain.RemoteAccount) error {
	return w.db.CreateRemoteAccount(acc)
}

func (w *DBWrapper) UpdateRemoteAccount(acc *domain.RemoteAccount) error {
	return w.db.UpdateRemoteAccount(acc)
}

func (w *DBWrapper) DeleteRemoteAccount(id uuid.UUID) error {
	return w.db.DeleteRemoteAccount(id)
}

func (w *DBWrapper) InvalidateRemoteAccountKey(id uuid.UUID) error {
	return w.db.InvalidateRemoteAccountKey(id)
}

// Follow operations

func (w *DBWrapper) CreateFollow(follow *domain.Follow) error {
	return w.db.CreateFollow(follow)
}

func (w *DBWrapper) ReadFollowByURI(uri string) (error, *domain.Follow) {
	return w.db.ReadFollowByURI(uri)
}

func (w *DBWrapper) ReadFollowByAccountIds(accountId, targetAccountId uuid.UUID) (error, *domain.Follow) {
	return w.db.ReadFollowByAccountIds(accountId, targetAccountId)
}

func (w *DBWrapper) DeleteFollowByURI(uri string) error {
	return w.db.DeleteFollowByURI(uri)
}

func (w *DBWrapper) DeleteFollowByAccountIds(accountId, targetAccountId uuid.UUID) error {
	return w.db.DeleteFollowByAccountIds(accountId, targetAccountId)
}

func (w *DBWrapper) ApproveFollowByURI(uri string) error {
	return w.db.ApproveFollowByURI(uri)
}

func (w *DBWrapper) ApproveFollowById(id uuid.UUID) error {
	return w.db.ApproveFollowById(id)
}

func (w *DBWrapper) ReadFollowersByAccountId(accountId uuid.UUID) (error, *[]domain.Follow) {
	return w.db.ReadFollowersByAccountId(accountId)
}

func (w *DBWrapper) DeleteFollowsByAccountId(accountId uuid.UUID) error {
	return w.db.DeleteFollowsByAccountId(accountId)
}

// Status operations

func (w *DBWrapper) CreateStatus(status *domain.Status) error {
	return w.db.CreateStatus(status)
}

func (w *DBWrapper) ReadStatusById(id uuid.UUID) (error, *domain.Status) {
	return w.db.ReadStatusById(id)
}

func (w *DBWrapper) ReadStatusByObjectURI(objectURI string) (error, *domain.Status) {
	return w.db.ReadStatusByObjectURI(objectURI)
}

func (w *DBWrapper) ReadStatusByActivityURI(activityURI string) (error, *domain.Status) {
	return w.db.ReadStatusByActivityURI(activityURI)
}

func (w *DBWrapper) UpdateStatusContent(id uuid.UUID, content string, sensitive bool, contentWarning string) error {
	return w.db.UpdateStatusContent(id, content, sensitive, contentWarning)
}

func (w *DBWrapper) DeleteStatusById(id uuid.UUID) error {
	return w.db.DeleteStatusById(id)
}

func (w *DBWrapper) DeleteStatusesByAccountId(accountId uuid.UUID) error {
	return w.db.DeleteStatusesByAccountId(accountId)
}

func (w *DBWrapper) IncrementFavouriteCount(statusId uuid.UUID) error {
	return w.db.IncrementFavouriteCount(statusId)
}

func (w *DBWrapper) DecrementFavouriteCount(statusId uuid.UUID) error {
	return w.db.DecrementFavouriteCount(statusId)
}

func (w *DBWrapper) IncrementReblogCount(statusId uuid.UUID) error {
	return w.db.IncrementReblogCount(statusId)
}

func (w *DBWrapper) DecrementReblogCount(statusId uuid.UUID) error {
	return w.db.DecrementReblogCount(statusId)
}

func (w *DBWrapper) IncrementReplyCountByURI(parentURI string) error {
	return w.db.IncrementReplyCountByURI(parentURI)
}

// Attachment operations

func (w *DBWrapper) CreateAttachment(att *domain.Attachment) error {
	return w.db.CreateAttachment(att)
}

func (w *DBWrapper) ReadAttachmentsByStatusId(statusId uuid.UUID) (error, *[]domain.Attachment) {
	return w.db.ReadAttachmentsByStatusId(statusId)
}

// Favourite operations

func (w *DBWrapper) CreateFavourite(fav *domain.Favourite) error {
	return w.db.CreateFavourite(fav)
}

func (w *DBWrapper) HasFavourite(accountId, statusId uuid.UUID) (bool, error) {
	return w.db.HasFavourite(accountId, statusId)
}

func (w *DBWrapper) ReadFavourite(accountId, statusId uuid.UUID) (error, *domain.Favourite) {
	return w.db.ReadFavourite(accountId, statusId)
}

func (w *DBWrapper) DeleteFavourite(accountId, statusId uuid.UUID) error {
	return w.db.DeleteFavourite(accountId, statusId)
}

// Reblog operations

func (w *DBWrapper) CreateReblog(reblog *domain.Reblog) error {
	return w.db.CreateReblog(reblog)
}

func (w *DBWrapper) HasReblog(accountId, statusId uuid.UUID) (bool, error) {
	return w.db.HasReblog(accountId, statusId)
}

func (w *DBWrapper) ReadReblog(accountId, statusId uuid.UUID) (error, *domain.Reblog) {
	return w.db.ReadReblog(accountId, statusId)
}

func (w *DBWrapper) DeleteReblog(accountId, statusId uuid.UUID) error {
	return w.db.DeleteReblog(accountId, statusId)
}

// Activity operations

func (w *DBWrapper) CreateActivity(activity *domain.Activity) error {
	return w.db.CreateActivity(activity)
}

func (w *DBWrapper) UpdateActivity(activity *domain.Activity) error {
	return w.db.UpdateActivity(activity)
}

func (w *DBWrapper) ReadActivityByURI(uri string) (error, *domain.Activity) {
	return w.db.ReadActivityByURI(uri)
}

func (w *DBWrapper) ReadActivityByObjectURI(objectURI string) (error, *domain.Activity) {
	return w.db.ReadActivityByObjectURI(objectURI)
}

func (w *DBWrapper) DeleteActivity(id uuid.UUID) error {
	return w.db.DeleteActivity(id)
}

// Notification and mention operations

func (w *DBWrapper) CreateNotification(notification *domain.Notification) error {
	return w.db.CreateNotification(notification)
}

func (w *DBWrapper) CreateMention(mention *domain.Mention) error {
	return w.db.CreateMention(mention)
}
