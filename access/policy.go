package access

// Class groups operations by who may perform them.
type Class int

const (
	// Public needs no identity.
	Public Class = iota
	// Authenticated needs a verified identity and nothing else.
	Authenticated
	// Create needs a registered, active actor with a known role.
	Create
	// SelfOrAdmin needs the actor to own the target or hold the admin role.
	SelfOrAdmin
	// AdminOnly needs an active admin.
	AdminOnly
)

func (c Class) String() string {
	switch c {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case Create:
		return "create"
	case SelfOrAdmin:
		return "self_or_admin"
	case AdminOnly:
		return "admin_only"
	default:
		return "unknown"
	}
}

type Operation string

const (
	OpSearch              Operation = "search"
	OpListPublicRequests  Operation = "listPublicRequests"
	OpGetRequest          Operation = "getRequest"
	OpListUsers           Operation = "listUsers"
	OpGetUserStatus       Operation = "getUserStatus"
	OpGetUserRole         Operation = "getUserRole"
	OpCreateUser          Operation = "createUser"
	OpUpdateUser          Operation = "updateUser"
	OpSetUserRole         Operation = "setUserRole"
	OpSetUserStatus       Operation = "setUserStatus"
	OpListRequestsAdmin   Operation = "listRequestsAdmin"
	OpListRequestsByMail  Operation = "listRequestsByEmail"
	OpCreateRequest       Operation = "createRequest"
	OpUpdateRequest       Operation = "updateRequest"
	OpPatchRequestStatus  Operation = "patchRequestStatus"
	OpDeleteRequest       Operation = "deleteRequest"
	OpCreateBlog          Operation = "createBlog"
	OpListPublishedBlogs  Operation = "listPublishedBlogs"
	OpGetPublishedBlog    Operation = "getPublishedBlog"
	OpListAllBlogs        Operation = "listAllBlogs"
	OpGetAnyBlog          Operation = "getAnyBlog"
	OpPatchBlogStatus     Operation = "patchBlogStatus"
	OpDeleteBlog          Operation = "deleteBlog"
	OpEditBlog            Operation = "editBlog"
	OpListFunds           Operation = "listFunds"
	OpRecordContribution  Operation = "recordContribution"
	OpCreatePaymentIntent Operation = "createPaymentIntent"
)

type rule struct {
	class   Class
	mutates bool
	noun    string
}

var policy = map[Operation]rule{
	OpSearch:             {class: Public, noun: "donor"},
	OpListPublicRequests: {class: Public, noun: "donation request"},
	OpCreateUser:         {class: Public, mutates: true, noun: "user"},
	OpListPublishedBlogs: {class: Public, noun: "blog"},
	OpGetPublishedBlog:   {class: Public, noun: "blog"},

	OpListFunds:           {class: Authenticated, noun: "fund entry"},
	OpCreatePaymentIntent: {class: Authenticated, noun: "payment intent"},

	OpCreateRequest:      {class: Create, mutates: true, noun: "donation request"},
	OpCreateBlog:         {class: Create, mutates: true, noun: "blog"},
	OpRecordContribution: {class: Create, mutates: true, noun: "fund entry"},

	OpGetRequest:         {class: SelfOrAdmin, noun: "donation request"},
	OpListRequestsByMail: {class: SelfOrAdmin, noun: "donation request"},
	OpGetUserStatus:      {class: SelfOrAdmin, noun: "user"},
	OpGetUserRole:        {class: SelfOrAdmin, noun: "user"},
	OpUpdateUser:         {class: SelfOrAdmin, mutates: true, noun: "user"},
	OpUpdateRequest:      {class: SelfOrAdmin, mutates: true, noun: "donation request"},
	OpPatchRequestStatus: {class: SelfOrAdmin, mutates: true, noun: "donation request"},
	OpDeleteRequest:      {class: SelfOrAdmin, mutates: true, noun: "donation request"},

	OpListUsers:         {class: AdminOnly, noun: "user"},
	OpSetUserRole:       {class: AdminOnly, mutates: true, noun: "user"},
	OpSetUserStatus:     {class: AdminOnly, mutates: true, noun: "user"},
	OpListRequestsAdmin: {class: AdminOnly, noun: "donation request"},
	OpListAllBlogs:      {class: AdminOnly, noun: "blog"},
	OpGetAnyBlog:        {class: AdminOnly, noun: "blog"},
	OpPatchBlogStatus:   {class: AdminOnly, mutates: true, noun: "blog"},
	OpDeleteBlog:        {class: AdminOnly, mutates: true, noun: "blog"},
	OpEditBlog:          {class: AdminOnly, mutates: true, noun: "blog"},
}

// ClassOf reports the class of op; ok is false for unknown operations.
func ClassOf(op Operation) (Class, bool) {
	r, ok := policy[op]
	return r.class, ok
}
