package models

// InvitationPayload is what an invitation token resolves to. It only lives in
// the token store, never in the database.
type InvitationPayload struct {
	Email       string `json:"email"`
	BoardID     uint   `json:"boardId"`
	BoardName   string `json:"boardName"`
	InvitedByID uint   `json:"invitedById"`
	RoleID      uint   `json:"roleId"`
}
