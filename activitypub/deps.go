package activitypub

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/queue"
	"github.com/pictodon/pictodon/util"
)

// Database defines the database operations required by the ActivityPub package.
// This interface allows for dependency injection and testing with mock implementations.
type Database interface {
	// Account operations
	ReadAccByUsername(username string) (error, *domain.Account)
	ReadAccById(id uuid.UUID) (error, *domain.Account)

	// Remote account operations
	ReadRemoteAccountByActorURI(actorURI string) (error, *domain.RemoteAccount)
	ReadRemoteAccountById(id uuid.UUID) (error, *domain.RemoteAccount)
	CreateRemoteAccount(acc *domain.RemoteAccount) error
	UpdateRemoteAccount(acc *domain.RemoteAccount) error
	DeleteRemoteAccount(id uuid.UUID) error
	InvalidateRemoteAccountKey(id uuid.UUID) error

	// Follow operations
	CreateFollow(follow *domain.Follow) error
	ReadFollowByURI(uri string) (error, *domain.Follow)
	ReadFollowByAccountIds(accountId, targetAccountId uuid.UUID) (error, *domain.Follow)
	DeleteFollowByURI(uri string) error
	DeleteFollowByAccountIds(accountId, targetAccountId uuid.UUID) error
	ApproveFollowByURI(uri string) error
	ApproveFollowById(id uuid.UUID) error
	ReadFollowersByAccountId(accountId uuid.UUID) (error, *[]domain.Follow)
	DeleteFollowsByAccountId(accountId uuid.UUID) error

	// Status operations
	CreateStatus(status *domain.Status) error
	ReadStatusById(id uuid.UUID) (error, *domain.Status)
	ReadStatusByObjectURI(objectURI string) (error, *domain.Status)
	ReadStatusByActivityURI(activityURI string) (error, *domain.Status)
	UpdateStatusContent(id uuid.UUID, content string, sensitive bool, contentWarning string) error
	DeleteStatusById(id uuid.UUID) error
	DeleteStatusesByAccountId(accountId uuid.UUID) error
	IncrementFavouriteCount(statusId uuid.UUID) error
	DecrementFavouriteCount(statusId uuid.UUID) error
	IncrementReblogCount(statusId uuid.UUID) error
	DecrementReblogCount(statusId uuid.UUID) error
	IncrementReplyCountByURI(parentURI string) error

	// Attachment operations
	CreateAttachment(att *domain.Attachment) error
	ReadAttachmentsByStatusId(statusId uuid.UUID) (error, *[]domain.Attachment)

	// Favourite operations
	CreateFavourite(fav *domain.Favourite) error
	HasFavourite(accountId, statusId uuid.UUID) (bool, error)
	ReadFavourite(accountId, statusId uuid.UUID) (error, *domain.Favourite)
	DeleteFavourite(accountId, statusId uuid.UUID) error

	// Reblog operations
	CreateReblog(reblog *domain.Reblog) error
	HasReblog(accountId, statusId uuid.UUID) (bool, error)
	ReadReblog(accountId, statusId uuid.UUID) (error, *domain.Reblog)
	DeleteReblog(accountId, statusId uuid.UUID) error

	// Activity operations
	CreateActivity(activity *domain.Activity) error
	UpdateActivity(activity *domain.Activity) error
	ReadActivityByURI(uri string) (error, *domain.Activity)
	ReadActivityByObjectURI(objectURI string) (error, *domain.Activity)
	DeleteActivity(id uuid.UUID) error

	// Notification and mention operations
	CreateNotification(notification *domain.Notification) error
	CreateMention(mention *domain.Mention) error
}

// HTTPClient defines the HTTP client operations required by the ActivityPub package.
// This interface allows for dependency injection and testing with mock implementations.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is the default HTTP client used in production
type DefaultHTTPClient struct {
	client *http.Client
}

// NewDefaultHTTPClient creates a new default HTTP client with the specified timeout
func NewDefaultHTTPClient(timeout time.Duration) *DefaultHTTPClient {
	return &DefaultHTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Do executes the HTTP request
func (c *DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// Deps bundles everything the federation layer needs. Handlers and
// workers receive it instead of reaching for singletons, so tests can
// swap in mocks.
type Deps struct {
	Database   Database
	HTTPClient HTTPClient
	Queue      queue.Queue
	Conf       *util.AppConfig
}

// NewDeps builds the production dependency set.
func NewDeps(database Database, q queue.Queue, conf *util.AppConfig) *Deps {
	return &Deps{
		Database:   database,
		HTTPClient: NewDefaultHTTPClient(time.Duration(conf.Conf.DeliveryTimeout) * time.Second),
		Queue:      q,
		Conf:       conf,
	}
}
