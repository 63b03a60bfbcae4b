package protocol

import "fmt"

// Tag identifies the semantic type of a framed message.
type Tag byte

// Request tags (client to server).
const (
	TagCreateUser Tag = 0x01
	TagLogin      Tag = 0x02
	TagLogout     Tag = 0x03

	TagAddImage    Tag = 0x10
	TagUpdateImage Tag = 0x11
	TagDeleteImage Tag = 0x12

	TagBrowseByTags  Tag = 0x20
	TagSearchByImage Tag = 0x21
	TagNextBatch     Tag = 0x22

	TagCartAdd    Tag = 0x30
	TagCartUpdate Tag = 0x31
	TagCartRemove Tag = 0x32
	TagCartView   Tag = 0x33
)

// Response tags (server to client).
const (
	TagOk           Tag = 0x40
	TagError        Tag = 0x41
	TagQueryStarted Tag = 0x42
	TagBatch        Tag = 0x43
	TagCart         Tag = 0x44
	TagImageAdded   Tag = 0x45
)

var tagNames = map[Tag]string{
	TagCreateUser:    "CreateUser",
	TagLogin:         "Login",
	TagLogout:        "Logout",
	TagAddImage:      "AddImage",
	TagUpdateImage:   "UpdateImage",
	TagDeleteImage:   "DeleteImage",
	TagBrowseByTags:  "BrowseByTags",
	TagSearchByImage: "SearchByImage",
	TagNextBatch:     "NextBatch",
	TagCartAdd:       "CartAdd",
	TagCartUpdate:    "CartUpdate",
	TagCartRemove:    "CartRemove",
	TagCartView:      "CartView",
	TagOk:            "Ok",
	TagError:         "Error",
	TagQueryStarted:  "QueryStarted",
	TagBatch:         "Batch",
	TagCart:          "Cart",
	TagImageAdded:    "ImageAdded",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(0x%02x)", byte(t))
}

// SchemaVersion is the current wire schema. Every body carries it so either
// peer can reject a message from a future, incompatible build.
const SchemaVersion = 1

// Error codes carried in ErrorResponse.
const (
	CodeBadCredential        = "bad_credential"
	CodeDuplicateUser        = "duplicate_user"
	CodeDuplicateName        = "duplicate_name"
	CodeNotFound             = "not_found"
	CodeNotOwner             = "not_owner"
	CodeInsufficientQuantity = "insufficient_quantity"
	CodeUnauthorized         = "unauthorized"
	CodeUnknownTag           = "unknown_tag"
	CodeInvalidArgument      = "invalid_argument"
	CodeStoreUnavailable     = "store_unavailable"
	CodeCollaborator         = "collaborator_failure"
	CodeInternal             = "internal"
)

// CredentialsRequest carries CreateUser and Login.
type CredentialsRequest struct {
	V        uint8  `cbor:"v"`
	Username string `cbor:"username"`
	Password string `cbor:"password"`
}

type AddImageRequest struct {
	V          uint8  `cbor:"v"`
	Name       string `cbor:"name"`
	Data       []byte `cbor:"data"`
	PriceCents int64  `cbor:"price_cents"`
	Quantity   int    `cbor:"quantity"`
	Tags       []int  `cbor:"tags,omitempty"`
}

type UpdateImageRequest struct {
	V          uint8  `cbor:"v"`
	ImageID    string `cbor:"image_id"`
	PriceCents int64  `cbor:"price_cents"`
	Quantity   int    `cbor:"quantity"`
	Tags       []int  `cbor:"tags,omitempty"`
}

type DeleteImageRequest struct {
	V       uint8  `cbor:"v"`
	ImageID string `cbor:"image_id"`
}

type BrowseByTagsRequest struct {
	V    uint8 `cbor:"v"`
	Tags []int `cbor:"tags,omitempty"`
}

type SearchByImageRequest struct {
	V     uint8  `cbor:"v"`
	Data  []byte `cbor:"data"`
	Limit int    `cbor:"limit"`
}

type NextBatchRequest struct {
	V         uint8 `cbor:"v"`
	BatchSize int   `cbor:"batch_size"`
}

type CartAddRequest struct {
	V        uint8  `cbor:"v"`
	ImageID  string `cbor:"image_id"`
	Quantity int    `cbor:"quantity"`
}

type CartUpdateRequest struct {
	V        uint8  `cbor:"v"`
	ImageID  string `cbor:"image_id"`
	Quantity int    `cbor:"quantity"`
}

type CartRemoveRequest struct {
	V       uint8  `cbor:"v"`
	ImageID string `cbor:"image_id"`
}

type CartViewRequest struct {
	V uint8 `cbor:"v"`
}

type LogoutRequest struct {
	V uint8 `cbor:"v"`
}

type OkResponse struct {
	V uint8 `cbor:"v"`
}

type ErrorResponse struct {
	V         uint8  `cbor:"v"`
	Code      string `cbor:"code"`
	Message   string `cbor:"message"`
	Retryable bool   `cbor:"retryable,omitempty"`
}

type ImageAddedResponse struct {
	V       uint8  `cbor:"v"`
	ImageID string `cbor:"image_id"`
}

// QueryStartedResponse acknowledges BrowseByTags / SearchByImage and reports
// the size of the materialized result set.
type QueryStartedResponse struct {
	V     uint8 `cbor:"v"`
	Total int   `cbor:"total"`
}

// BatchItem is one catalog image inside a Batch response. Score is only set
// for similarity queries.
type BatchItem struct {
	ImageID    string  `cbor:"image_id"`
	Name       string  `cbor:"name"`
	Data       []byte  `cbor:"data,omitempty"`
	PriceCents int64   `cbor:"price_cents"`
	Quantity   int     `cbor:"quantity"`
	Tags       []int   `cbor:"tags,omitempty"`
	Score      float32 `cbor:"score,omitempty"`
}

type BatchResponse struct {
	V       uint8       `cbor:"v"`
	Items   []BatchItem `cbor:"items,omitempty"`
	HasMore bool        `cbor:"has_more"`
}

type CartEntry struct {
	ImageID    string `cbor:"image_id"`
	Name       string `cbor:"name"`
	PriceCents int64  `cbor:"price_cents"`
	Quantity   int    `cbor:"quantity"`
}

type CartResponse struct {
	V          uint8       `cbor:"v"`
	Items      []CartEntry `cbor:"items,omitempty"`
	TotalCents int64       `cbor:"total_cents"`
}
