// Package httpapi exposes the exchange over HTTP JSON. Wire shapes follow
// the public API contract; every failure is {"status":"fail","message":...}
// and all retrieval denials share one message regardless of cause.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/errs"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Client-facing messages. msgDenied is deliberately shared by every
// retrieval denial so the response never reveals which gate closed.
const (
	msgInternal     = "Internal server error"
	msgTokenMissing = "You are not logged in, please provide a token"
	msgTokenInvalid = "Authentication token is invalid or expired"
	msgBadCreds     = "Email or password is wrong"
	msgEmailExists  = "A user with this email already exists"
	msgRateLimited  = "Too many login attempts, please try again later"
	msgDenied       = "File access denied"
	msgFileNotFound = "File not found"
	msgNotPending   = "File can no longer be revoked"
	msgKeySet       = "Public key is already set"
)

// maxUploadBytes bounds one multipart upload.
const maxUploadBytes = 32 << 20 // 32 MB

type Server struct {
	auth     service.AuthService
	exchange service.ExchangeService
	validate *validator.Validate
	log      *zap.Logger
}

func NewServer(auth service.AuthService, exchange service.ExchangeService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		auth:     auth,
		exchange: exchange,
		validate: validator.New(),
		log:      log,
	}
}

/************ auth ************/

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var dto RegisterUserDto
	if !s.decodeAndValidate(w, r, &dto) {
		return
	}
	u, err := s.auth.Register(r.Context(), dto.Name, dto.Email, dto.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserResponseDto{
		Status: "success",
		Data:   UserData{User: FilterUser(u)},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var dto LoginUserDto
	if !s.decodeAndValidate(w, r, &dto) {
		return
	}
	tokens, _, err := s.auth.LoginWithIP(r.Context(), dto.Email, dto.Password, r.RemoteAddr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserLoginResponseDto{Status: "success", Token: tokens.AccessToken})
}

/************ users ************/

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, msgTokenInvalid)
		return
	}
	u, err := s.auth.GetByID(r.Context(), userID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponseDto{
		Status: "success",
		Data:   UserData{User: FilterUser(u)},
	})
}

func (s *Server) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())
	var dto NameUpdateDto
	if !s.decodeAndValidate(w, r, &dto) {
		return
	}
	if err := s.auth.UpdateName(r.Context(), userID, dto.Name); err != nil {
		s.fail(w, err)
		return
	}
	u, err := s.auth.GetByID(r.Context(), userID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponseDto{
		Status: "success",
		Data:   UserData{User: FilterUser(u)},
	})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())
	var dto UserPasswordUpdateDto
	if !s.decodeAndValidate(w, r, &dto) {
		return
	}
	if err := s.auth.UpdatePassword(r.Context(), userID, dto.OldPassword, dto.NewPassword); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: "success", Message: "Password updated successfully"})
}

func (s *Server) handleUpdatePublicKey(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())
	var dto PublicKeyUpdateDto
	if !s.decodeAndValidate(w, r, &dto) {
		return
	}
	key, err := base64.StdEncoding.DecodeString(dto.PublicKey)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "PublicKey must be base64 encoded")
		return
	}
	if err := s.auth.SetPublicKey(r.Context(), userID, key); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			writeFail(w, http.StatusConflict, msgKeySet)
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: "success", Message: "Public key saved"})
}

func (s *Server) handleSearchByEmail(w http.ResponseWriter, r *http.Request) {
	dto := SearchQueryByEmailDto{Query: r.URL.Query().Get("query")}
	if err := s.validate.Struct(dto); err != nil {
		writeFail(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	users, err := s.auth.SearchByEmail(r.Context(), dto.Query)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EmailListResponseDto{Status: "success", Emails: FilterEmails(users)})
}

/************ files ************/

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	dto := FileUploadDtos{
		RecipientEmail: r.FormValue("recipient_email"),
		Password:       r.FormValue("password"),
		ExpirationDate: r.FormValue("expiration_date"),
	}
	if err := s.validate.Struct(dto); err != nil {
		writeFail(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	expiration, err := time.Parse(time.RFC3339, dto.ExpirationDate)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid date format. Expected format is YYYY-MM-DDTHH:MM:SS.ssssssZ")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "File could not be read")
		return
	}

	share, err := s.exchange.Send(r.Context(), userID, service.SendInput{
		FileName:       header.Filename,
		Data:           data,
		RecipientEmail: dto.RecipientEmail,
		Password:       dto.Password,
		ExpirationDate: expiration,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FileUploadResponseDto{
		Status:         "success",
		FileID:         share.Link.SharedID.String(),
		FileName:       share.File.FileName,
		RecipientEmail: share.Link.RecipientEmail,
		ExpirationDate: share.File.ExpirationDate,
		CreatedAt:      share.File.CreatedAt,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var dto RetrieveFileDto
	if !s.decodeAndValidate(w, r, &dto) {
		return
	}
	sharedID, err := uuid.FromString(dto.SharedID)
	if err != nil {
		// malformed ids get the same denial as unknown ones
		writeFail(w, http.StatusUnauthorized, msgDenied)
		return
	}
	res, err := s.exchange.Retrieve(r.Context(), sharedID, dto.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RetrieveFileResponseDto{
		Status:      "success",
		FileName:    res.FileName,
		SenderEmail: res.SenderEmail,
		Ciphertext:  base64.StdEncoding.EncodeToString(res.Ciphertext),
		WrappedDEK:  base64.StdEncoding.EncodeToString(res.WrappedDEK),
	})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())
	var dto RevokeFileDto
	if !s.decodeAndValidate(w, r, &dto) {
		return
	}
	sharedID, err := uuid.FromString(dto.SharedID)
	if err != nil {
		writeFail(w, http.StatusNotFound, msgFileNotFound)
		return
	}
	if err := s.exchange.Revoke(r.Context(), userID, sharedID); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: "success", Message: "File revoked"})
}

func (s *Server) handleListSent(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())
	page, limit := pageParams(r)
	rows, total, err := s.exchange.ListSent(r.Context(), userID, page, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserSendFileListResponseDto{
		Status:  "success",
		Files:   FilterSentFiles(rows),
		Results: total,
	})
}

func (s *Server) handleListReceived(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())
	u, err := s.auth.GetByID(r.Context(), userID)
	if err != nil {
		s.fail(w, err)
		return
	}
	page, limit := pageParams(r)
	rows, total, err := s.exchange.ListReceived(r.Context(), u.Email, page, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserReceiveFileListResponseDto{
		Status:  "success",
		Files:   FilterReceivedFiles(rows),
		Results: total,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "success", Message: "ok"})
}

/************ helpers ************/

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := s.validate.Struct(dto); err != nil {
		writeFail(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// fail maps service sentinels onto wire failures.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrDenied):
		writeFail(w, http.StatusUnauthorized, msgDenied)
	case errors.Is(err, errs.ErrValidation):
		writeFail(w, http.StatusBadRequest, trimSentinel(err, errs.ErrValidation))
	case errors.Is(err, errs.ErrUnauthorized):
		writeFail(w, http.StatusUnauthorized, msgBadCreds)
	case errors.Is(err, errs.ErrRateLimited):
		writeFail(w, http.StatusTooManyRequests, msgRateLimited)
	case errors.Is(err, errs.ErrAlreadyExists):
		writeFail(w, http.StatusConflict, msgEmailExists)
	case errors.Is(err, errs.ErrNotFound):
		writeFail(w, http.StatusNotFound, msgFileNotFound)
	case errors.Is(err, errs.ErrTransition):
		writeFail(w, http.StatusConflict, msgNotPending)
	default:
		s.log.Error("request failed", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, msgInternal)
	}
}

// trimSentinel strips the "validation error: " prefix the sentinel wrap
// leaves on client-facing messages.
func trimSentinel(err error, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Status: "fail", Message: message})
}
