package httpapi

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/go-playground/validator/v10"
)

// RegisterUserDto is the registration request body.
type RegisterUserDto struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// LoginUserDto is the login request body.
type LoginUserDto struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// NameUpdateDto changes the display name.
type NameUpdateDto struct {
	Name string `json:"name" validate:"required"`
}

// UserPasswordUpdateDto rotates the login password.
type UserPasswordUpdateDto struct {
	NewPassword        string `json:"new_password" validate:"required,min=6"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,min=6,eqfield=NewPassword"`
	OldPassword        string `json:"old_password" validate:"required,min=6"`
}

// PublicKeyUpdateDto uploads the user wrap key, base64-encoded.
type PublicKeyUpdateDto struct {
	PublicKey string `json:"public_key" validate:"required,base64"`
}

// SearchQueryByEmailDto is the recipient search query.
type SearchQueryByEmailDto struct {
	Query string `json:"query" validate:"required"`
}

// FileUploadDtos carries the non-file multipart fields of an upload.
type FileUploadDtos struct {
	RecipientEmail string `json:"recipient_email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	ExpirationDate string `json:"expiration_date" validate:"required"`
}

// RetrieveFileDto is the retrieval request body.
type RetrieveFileDto struct {
	SharedID string `json:"shared_id" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// RevokeFileDto is the revocation request body.
type RevokeFileDto struct {
	SharedID string `json:"shared_id" validate:"required"`
}

// Response is the generic status+message body, also used for failures as
// {"status":"fail","message":...}.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FilterUserDto is the public view of an account.
type FilterUserDto struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PublicKey *string   `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FilterUser maps an account to its public view.
func FilterUser(u *model.User) FilterUserDto {
	dto := FilterUserDto{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.PublicKey != nil {
		pk := base64.StdEncoding.EncodeToString(u.PublicKey)
		dto.PublicKey = &pk
	}
	return dto
}

// UserData wraps the filtered user.
type UserData struct {
	User FilterUserDto `json:"user"`
}

// UserResponseDto is the body of user-returning endpoints.
type UserResponseDto struct {
	Status string   `json:"status"`
	Data   UserData `json:"data"`
}

// UserLoginResponseDto is the login response.
type UserLoginResponseDto struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

// FilterEmailDto is one search hit.
type FilterEmailDto struct {
	Email string `json:"email"`
}

// EmailListResponseDto is the recipient search response.
type EmailListResponseDto struct {
	Status string           `json:"status"`
	Emails []FilterEmailDto `json:"emails"`
}

// FilterEmails maps search hits to their public view.
func FilterEmails(users []model.User) []FilterEmailDto {
	out := make([]FilterEmailDto, 0, len(users))
	for _, u := range users {
		out = append(out, FilterEmailDto{Email: u.Email})
	}
	return out
}

// UserSendFileDto is one row of the sender-side listing.
type UserSendFileDto struct {
	FileID         string    `json:"file_id"`
	FileName       string    `json:"file_name"`
	RecipientEmail string    `json:"recipient_email"`
	ExpirationDate time.Time `json:"expiration_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSendFileListResponseDto is the sender-side listing response.
type UserSendFileListResponseDto struct {
	Status  string            `json:"status"`
	Files   []UserSendFileDto `json:"files"`
	Results int64             `json:"results"`
}

// FilterSentFiles maps listing rows to their wire shape.
func FilterSentFiles(rows []model.SentFileDetails) []UserSendFileDto {
	out := make([]UserSendFileDto, 0, len(rows))
	for _, r := range rows {
		out = append(out, UserSendFileDto{
			FileID:         r.FileID.String(),
			FileName:       r.FileName,
			RecipientEmail: r.RecipientEmail,
			ExpirationDate: r.ExpirationDate,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out
}

// UserReceiveFileDto is one row of the recipient-side listing.
type UserReceiveFileDto struct {
	FileID         string    `json:"file_id"`
	FileName       string    `json:"file_name"`
	SenderEmail    string    `json:"sender_email"`
	ExpirationDate time.Time `json:"expiration_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserReceiveFileListResponseDto is the recipient-side listing response.
type UserReceiveFileListResponseDto struct {
	Status  string               `json:"status"`
	Files   []UserReceiveFileDto `json:"files"`
	Results int64                `json:"results"`
}

// FilterReceivedFiles maps listing rows to their wire shape.
func FilterReceivedFiles(rows []model.ReceivedFileDetails) []UserReceiveFileDto {
	out := make([]UserReceiveFileDto, 0, len(rows))
	for _, r := range rows {
		out = append(out, UserReceiveFileDto{
			FileID:         r.FileID.String(),
			FileName:       r.FileName,
			SenderEmail:    r.SenderEmail,
			ExpirationDate: r.ExpirationDate,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out
}

// FileUploadResponseDto confirms a new share.
type FileUploadResponseDto struct {
	Status         string    `json:"status"`
	FileID         string    `json:"file_id"`
	FileName       string    `json:"file_name"`
	RecipientEmail string    `json:"recipient_email"`
	ExpirationDate time.Time `json:"expiration_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// RetrieveFileResponseDto returns the still-encrypted content. The client
// unwraps the DEK with its private key and decrypts locally.
type RetrieveFileResponseDto struct {
	Status      string `json:"status"`
	FileName    string `json:"file_name"`
	SenderEmail string `json:"sender_email"`
	Ciphertext  string `json:"ciphertext"`  // base64
	WrappedDEK  string `json:"wrapped_dek"` // base64
}

// validationMessage renders the first violation as a client-facing message.
func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return "Invalid request body"
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Email is invalid"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "eqfield":
		return "passwords do not match"
	case "base64":
		return fmt.Sprintf("%s must be base64 encoded", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
