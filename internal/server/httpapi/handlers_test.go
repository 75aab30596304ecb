package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/errs"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/service"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSignKey = []byte("httpapi-test-key")

/************ fakes ************/

type fakeAuth struct {
	user     *model.User
	loginErr error
	setKey   []byte
	keyErr   error
}

func (f *fakeAuth) Register(_ context.Context, name, email, _ string) (*model.User, error) {
	if f.user != nil && f.user.Email == email {
		return nil, errs.ErrAlreadyExists
	}
	u := &model.User{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	f.user = u
	return u, nil
}

func (f *fakeAuth) LoginWithIP(_ context.Context, _, _, _ string) (model.Tokens, *model.User, error) {
	if f.loginErr != nil {
		return model.Tokens{}, nil, f.loginErr
	}
	return model.Tokens{AccessToken: "issued-token"}, f.user, nil
}

func (f *fakeAuth) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, errs.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeAuth) SetPublicKey(_ context.Context, _ uuid.UUID, key []byte) error {
	if f.keyErr != nil {
		return f.keyErr
	}
	f.setKey = key
	return nil
}

func (f *fakeAuth) SearchByEmail(_ context.Context, _ string) ([]model.User, error) {
	return []model.User{{Email: "bob@example.com"}}, nil
}

func (f *fakeAuth) UpdateName(_ context.Context, _ uuid.UUID, name string) error {
	f.user.Name = name
	return nil
}

func (f *fakeAuth) UpdatePassword(_ context.Context, _ uuid.UUID, _, _ string) error {
	return nil
}

type fakeExchange struct {
	sendIn      service.SendInput
	retrieveErr error
	revokeErr   error
	gotPage     int
	gotLimit    int
}

func (f *fakeExchange) Send(_ context.Context, senderID uuid.UUID, in service.SendInput) (*model.Share, error) {
	f.sendIn = in
	sharedID := uuid.Must(uuid.NewV4())
	return &model.Share{
		File: model.FileRecord{
			OwnerID:        senderID,
			FileName:       in.FileName,
			ExpirationDate: in.ExpirationDate,
			CreatedAt:      time.Now().UTC(),
		},
		Link: model.ShareLink{
			SharedID:       sharedID,
			RecipientEmail: in.RecipientEmail,
			Status:         model.StatusPending,
		},
	}, nil
}

func (f *fakeExchange) Retrieve(_ context.Context, _ uuid.UUID, _ string) (*service.RetrieveResult, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return &service.RetrieveResult{
		FileName:    "report.pdf",
		SenderEmail: "alice@example.com",
		Ciphertext:  []byte("sealed-bytes"),
		WrappedDEK:  []byte("wrapped-key"),
	}, nil
}

func (f *fakeExchange) Revoke(_ context.Context, _, _ uuid.UUID) error { return f.revokeErr }

func (f *fakeExchange) ListSent(_ context.Context, _ uuid.UUID, page, limit int) ([]model.SentFileDetails, int64, error) {
	f.gotPage, f.gotLimit = page, limit
	return []model.SentFileDetails{{FileID: uuid.Must(uuid.NewV4()), FileName: "a.txt"}}, 1, nil
}

func (f *fakeExchange) ListReceived(_ context.Context, _ string, page, limit int) ([]model.ReceivedFileDetails, int64, error) {
	f.gotPage, f.gotLimit = page, limit
	return nil, 0, nil
}

/************ harness ************/

type apiFixture struct {
	auth     *fakeAuth
	exchange *fakeExchange
	handler  http.Handler
	token    string
	userID   uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	auth := &fakeAuth{}
	exchange := &fakeExchange{}
	srv := NewServer(auth, exchange, zap.NewNop())

	userID := uuid.Must(uuid.NewV4())
	auth.user = &model.User{
		ID:        userID,
		Name:      "Alice",
		Email:     "alice@example.com",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSignKey)
	require.NoError(t, err)

	return &apiFixture{
		auth:     auth,
		exchange: exchange,
		handler:  NewRouter(srv, testSignKey, zap.NewNop()),
		token:    token,
		userID:   userID,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

/************ tests ************/

func TestRegister(t *testing.T) {
	f := newAPIFixture(t)
	f.auth.user = nil

	rec := f.do(t, http.MethodPost, "/api/auth/register", RegisterUserDto{
		Name: "Alice", Email: "alice@example.com",
		Password: "s3cret-pass", PasswordConfirm: "s3cret-pass",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody[UserResponseDto](t, rec)
	require.Equal(t, "success", body.Status)
	require.Equal(t, "alice@example.com", body.Data.User.Email)
	require.Nil(t, body.Data.User.PublicKey)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/auth/register", RegisterUserDto{
		Name: "Alice", Email: "alice@example.com",
		Password: "s3cret-pass", PasswordConfirm: "different",
	}, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[Response](t, rec)
	require.Equal(t, "fail", body.Status)
	require.Equal(t, "passwords do not match", body.Message)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/auth/register", RegisterUserDto{
		Name: "Other", Email: "alice@example.com",
		Password: "s3cret-pass", PasswordConfirm: "s3cret-pass",
	}, false)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, msgEmailExists, decodeBody[Response](t, rec).Message)
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/auth/login", LoginUserDto{
		Email: "alice@example.com", Password: "s3cret-pass",
	}, false)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[UserLoginResponseDto](t, rec)
	require.Equal(t, "success", body.Status)
	require.Equal(t, "issued-token", body.Token)
}

func TestLogin_Failures(t *testing.T) {
	f := newAPIFixture(t)

	f.auth.loginErr = errs.ErrUnauthorized
	rec := f.do(t, http.MethodPost, "/api/auth/login", LoginUserDto{
		Email: "alice@example.com", Password: "wrong-pass",
	}, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, msgBadCreds, decodeBody[Response](t, rec).Message)

	f.auth.loginErr = errs.ErrRateLimited
	rec = f.do(t, http.MethodPost, "/api/auth/login", LoginUserDto{
		Email: "alice@example.com", Password: "wrong-pass",
	}, false)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/users/me", nil, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, msgTokenMissing, decodeBody[Response](t, rec).Message)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, msgTokenInvalid, decodeBody[Response](t, w).Message)

	rec = f.do(t, http.MethodGet, "/api/users/me", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice@example.com", decodeBody[UserResponseDto](t, rec).Data.User.Email)
}

func TestUpdatePublicKey(t *testing.T) {
	f := newAPIFixture(t)
	key := bytes.Repeat([]byte{7}, 32)

	rec := f.do(t, http.MethodPut, "/api/users/public-key", PublicKeyUpdateDto{
		PublicKey: base64.StdEncoding.EncodeToString(key),
	}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, key, f.auth.setKey)

	f.auth.keyErr = errs.ErrAlreadyExists
	rec = f.do(t, http.MethodPut, "/api/users/public-key", PublicKeyUpdateDto{
		PublicKey: base64.StdEncoding.EncodeToString(key),
	}, true)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, msgKeySet, decodeBody[Response](t, rec).Message)
}

func TestSearchByEmail(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/users/search?query=bob", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[EmailListResponseDto](t, rec)
	require.Len(t, body.Emails, 1)
	require.Equal(t, "bob@example.com", body.Emails[0].Email)

	rec = f.do(t, http.MethodGet, "/api/users/search", nil, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload(t *testing.T) {
	f := newAPIFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("quarterly numbers"))
	require.NoError(t, err)
	expiration := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	require.NoError(t, mw.WriteField("recipient_email", "bob@example.com"))
	require.NoError(t, mw.WriteField("password", "hunter2-secret"))
	require.NoError(t, mw.WriteField("expiration_date", expiration))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody[FileUploadResponseDto](t, rec)
	require.Equal(t, "success", body.Status)
	require.Equal(t, "report.pdf", body.FileName)
	require.Equal(t, "bob@example.com", body.RecipientEmail)
	require.Equal(t, []byte("quarterly numbers"), f.exchange.sendIn.Data)
}

func TestUpload_PastExpirationRejected(t *testing.T) {
	f := newAPIFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "report.pdf")
	_, _ = fw.Write([]byte("x"))
	require.NoError(t, mw.WriteField("recipient_email", "bob@example.com"))
	require.NoError(t, mw.WriteField("password", "hunter2-secret"))
	require.NoError(t, mw.WriteField("expiration_date", "not-a-date"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[Response](t, rec).Message, "Invalid date format")
}

func TestRetrieve(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/files/retrieve", RetrieveFileDto{
		SharedID: uuid.Must(uuid.NewV4()).String(), Password: "hunter2-secret",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[RetrieveFileResponseDto](t, rec)
	require.Equal(t, "report.pdf", body.FileName)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("sealed-bytes")), body.Ciphertext)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("wrapped-key")), body.WrappedDEK)
}

func TestRetrieve_UniformDenialBody(t *testing.T) {
	f := newAPIFixture(t)
	f.exchange.retrieveErr = errs.ErrDenied

	// wrong password, unknown id and malformed id all produce the same body
	recDenied := f.do(t, http.MethodPost, "/api/files/retrieve", RetrieveFileDto{
		SharedID: uuid.Must(uuid.NewV4()).String(), Password: "wrong-pass",
	}, true)
	recBadID := f.do(t, http.MethodPost, "/api/files/retrieve", RetrieveFileDto{
		SharedID: "not-a-uuid", Password: "wrong-pass",
	}, true)

	require.Equal(t, http.StatusUnauthorized, recDenied.Code)
	require.Equal(t, http.StatusUnauthorized, recBadID.Code)
	require.JSONEq(t, recDenied.Body.String(), recBadID.Body.String())
	require.Equal(t, msgDenied, decodeBody[Response](t, recDenied).Message)
}

func TestRetrieve_IntegrityFailureIs500(t *testing.T) {
	f := newAPIFixture(t)
	f.exchange.retrieveErr = errs.ErrCrypto

	rec := f.do(t, http.MethodPost, "/api/files/retrieve", RetrieveFileDto{
		SharedID: uuid.Must(uuid.NewV4()).String(), Password: "hunter2-secret",
	}, true)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, msgInternal, decodeBody[Response](t, rec).Message)
}

func TestRevoke(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/files/revoke", RevokeFileDto{
		SharedID: uuid.Must(uuid.NewV4()).String(),
	}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	f.exchange.revokeErr = errs.ErrTransition
	rec = f.do(t, http.MethodPost, "/api/files/revoke", RevokeFileDto{
		SharedID: uuid.Must(uuid.NewV4()).String(),
	}, true)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, msgNotPending, decodeBody[Response](t, rec).Message)

	f.exchange.revokeErr = errs.ErrNotFound
	rec = f.do(t, http.MethodPost, "/api/files/revoke", RevokeFileDto{
		SharedID: uuid.Must(uuid.NewV4()).String(),
	}, true)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSent(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/files/sent?page=2&limit=20", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, f.exchange.gotPage)
	require.Equal(t, 20, f.exchange.gotLimit)

	body := decodeBody[UserSendFileListResponseDto](t, rec)
	require.Equal(t, "success", body.Status)
	require.Equal(t, int64(1), body.Results)
	require.Len(t, body.Files, 1)
}

func TestListReceived_EmptyIsNotNullJSON(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/files/received", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `"files":[]`))
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
}
