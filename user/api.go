package user

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mflix-org/marquee/common/logging"
	"github.com/mflix-org/marquee/events"
	"github.com/mflix-org/marquee/token"
)

type (
	Api struct {
		Store     Storage
		ApiConfig ApiConfig
		notifier  events.Notifier
	}
	ApiConfig struct {
		//used for token
		Secret string `envconfig:"API_SECRET" required:"true"`
		//so we can change the default lifetime of the token
		TokenDuration time.Duration `envconfig:"TOKEN_DURATION" default:"24h"`
	}
	varsHandler func(http.ResponseWriter, *http.Request, map[string]string)

	// loginResponse mirrors the body the mflix front end expects after
	// registration and login.
	loginResponse struct {
		AuthToken string `json:"auth_token"`
		Info      *User  `json:"info"`
	}
)

const (
	STATUS_NO_USR_DETAILS       = "No user details were given"
	STATUS_ERR_FINDING_USR      = "Error finding user"
	STATUS_ERR_CREATING_USR     = "Error creating the user"
	STATUS_ERR_DELETING_USR     = "Error deleting the user"
	STATUS_USR_ALREADY_EXISTS   = "User already exists"
	STATUS_ERR_GENERATING_TOKEN = "Error generating the token"
	STATUS_ERR_UPDATING_TOKEN   = "Error updating token"
	STATUS_MISSING_USR_DETAILS  = "Not all required details were given"
	STATUS_MISSING_ID_PW        = "Missing id and/or password"
	STATUS_MISSING_PREFERENCES  = "The preferences are required"
	STATUS_ERR_UPDATING_PREFS   = "Error updating the preferences"
	STATUS_NO_MATCH             = "No user matched the given details"
	STATUS_NO_TOKEN_MATCH       = "No token matched the given details"
	STATUS_PW_WRONG             = "Wrong password"
	STATUS_NO_TOKEN             = "No x-marquee-session-token was found"
	STATUS_ADMIN_REQUIRED       = "An administrator token is required"
	STATUS_GETSTATUS_ERR        = "Error checking service status"
)

func InitApi(cfg ApiConfig, store Storage, notifier events.Notifier) *Api {
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	return &Api{
		Store:     store,
		ApiConfig: cfg,
		notifier:  notifier,
	}
}

func (a *Api) SetHandlers(prefix string, rtr *mux.Router) {
	rtr.HandleFunc(prefix+"/status", a.GetStatus).Methods("GET")

	rtr.HandleFunc(prefix+"/user", a.CreateUser).Methods("POST")
	rtr.HandleFunc(prefix+"/user", a.GetUserInfo).Methods("GET")
	rtr.HandleFunc(prefix+"/user", a.DeleteUser).Methods("DELETE")
	rtr.HandleFunc(prefix+"/user/preferences", a.UpdatePreferences).Methods("PUT")

	rtr.HandleFunc(prefix+"/login", a.Login).Methods("POST")
	rtr.HandleFunc(prefix+"/logout", a.Logout).Methods("POST")

	rtr.Handle(prefix+"/token/{token}", varsHandler(a.ServerCheckToken)).Methods("GET")
}

func (h varsHandler) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	h(res, req, vars)
}

func (a *Api) logger(req *http.Request) *log.Entry {
	return logging.FromContext(req.Context()).WithField("component", "api/user")
}

func (a *Api) GetStatus(res http.ResponseWriter, req *http.Request) {
	if err := a.Store.Ping(req.Context()); err != nil {
		a.logger(req).WithError(err).Error(STATUS_GETSTATUS_ERR)
		sendStatus(res, http.StatusInternalServerError, STATUS_GETSTATUS_ERR)
		return
	}
	sendStatus(res, http.StatusOK, "OK")
}

// status: 201 loginResponse
// status: 400 STATUS_MISSING_USR_DETAILS
// status: 409 STATUS_USR_ALREADY_EXISTS
// status: 500 STATUS_ERR_CREATING_USR, STATUS_ERR_GENERATING_TOKEN
func (a *Api) CreateUser(res http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	usrDetails, err := getUserDetail(req)
	if err != nil {
		a.logger(req).WithError(err).Info(STATUS_MISSING_USR_DETAILS)
		sendStatus(res, http.StatusBadRequest, STATUS_MISSING_USR_DETAILS)
		return
	}

	newUsr, err := NewUser(usrDetails)
	if err != nil {
		if err == ErrMissingUserDetails {
			a.logger(req).Info(STATUS_MISSING_USR_DETAILS)
			sendStatus(res, http.StatusBadRequest, STATUS_MISSING_USR_DETAILS)
			return
		}
		a.logger(req).WithError(err).Error(STATUS_ERR_CREATING_USR)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_CREATING_USR)
		return
	}

	if err := a.Store.AddUser(ctx, newUsr); err != nil {
		if IsDuplicateUser(err) {
			a.logger(req).WithField("email", newUsr.Email).Info(STATUS_USR_ALREADY_EXISTS)
			sendStatus(res, http.StatusConflict, STATUS_USR_ALREADY_EXISTS)
			return
		}
		a.logger(req).WithError(err).Error(STATUS_ERR_CREATING_USR)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_CREATING_USR)
		return
	}

	if err := a.notifier.NotifyUserCreated(ctx, newUsr.Email, newUsr.Name, newUsr.IsAdmin); err != nil {
		a.logger(req).WithError(err).Warn("unable to announce the new user")
	}

	a.startSessionAndSend(res, req, newUsr, http.StatusCreated)
}

// status: 200 loginResponse
// status: 400 STATUS_MISSING_ID_PW
// status: 401 STATUS_NO_MATCH
// status: 500 STATUS_ERR_FINDING_USR, STATUS_ERR_UPDATING_TOKEN
func (a *Api) Login(res http.ResponseWriter, req *http.Request) {
	email, pw := unpackAuth(req.Header.Get("Authorization"))
	if email == "" {
		a.logger(req).Info(STATUS_MISSING_ID_PW)
		sendStatus(res, http.StatusBadRequest, STATUS_MISSING_ID_PW)
		return
	}

	usr, err := a.Store.GetUser(req.Context(), email)
	if err != nil {
		a.logger(req).WithError(err).Error(STATUS_ERR_FINDING_USR)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_FINDING_USR)
		return
	}
	if usr == nil || !usr.PwsMatch(pw) {
		a.logger(req).WithField("email", email).Info(STATUS_NO_MATCH)
		sendStatus(res, http.StatusUnauthorized, STATUS_NO_MATCH)
		return
	}

	a.startSessionAndSend(res, req, usr, http.StatusOK)
}

// startSessionAndSend issues a token for usr, stores it as the user's only
// session and writes the login response.
func (a *Api) startSessionAndSend(res http.ResponseWriter, req *http.Request, usr *User, statusCode int) {
	sessionToken, err := token.CreateSessionToken(
		&token.TokenData{UserId: usr.Email, Name: usr.Name, IsAdmin: usr.IsAdmin},
		token.TokenConfig{Secret: a.ApiConfig.Secret, DurationSecs: int64(a.ApiConfig.TokenDuration.Seconds())},
	)
	if err != nil {
		a.logger(req).WithError(err).Error(STATUS_ERR_GENERATING_TOKEN)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_GENERATING_TOKEN)
		return
	}

	if err := a.Store.CreateUserSession(req.Context(), usr.Email, sessionToken.ID); err != nil {
		a.logger(req).WithError(err).Error(STATUS_ERR_UPDATING_TOKEN)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_UPDATING_TOKEN)
		return
	}

	res.Header().Set(token.MARQUEE_SESSION_TOKEN, sessionToken.ID)
	sendModelAsResWithStatus(res, loginResponse{AuthToken: sessionToken.ID, Info: usr}, statusCode)
}

// authenticate accepts a token only while it is still the user's stored
// session, so logging out or in again revokes it.
func (a *Api) authenticate(res http.ResponseWriter, req *http.Request) *token.TokenData {
	sessionToken := req.Header.Get(token.MARQUEE_SESSION_TOKEN)
	if sessionToken == "" {
		a.logger(req).Info(STATUS_NO_TOKEN)
		sendStatus(res, http.StatusUnauthorized, STATUS_NO_TOKEN)
		return nil
	}

	td, err := a.checkToken(req, sessionToken)
	if err != nil {
		a.logger(req).WithError(err).Error(STATUS_ERR_FINDING_USR)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_FINDING_USR)
		return nil
	}
	if td == nil {
		a.logger(req).Info(STATUS_NO_TOKEN_MATCH)
		sendStatus(res, http.StatusUnauthorized, STATUS_NO_TOKEN_MATCH)
		return nil
	}
	return td
}

// checkToken returns nil token data for tokens that do not verify or are not
// the stored session of their user.
func (a *Api) checkToken(req *http.Request, sessionToken string) (*token.TokenData, error) {
	td, err := token.UnpackSessionTokenAndVerify(sessionToken, a.ApiConfig.Secret)
	if err != nil {
		a.logger(req).WithError(err).Debug("token did not verify")
		return nil, nil
	}

	session, err := a.Store.GetUserSession(req.Context(), td.UserId)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Jwt != sessionToken {
		return nil, nil
	}
	return td, nil
}

// Logout ends the caller's session. Only the token of the current session is
// accepted, so a token revoked by a newer login cannot end that login.
//
// status: 200
// status: 401 STATUS_NO_TOKEN, STATUS_NO_TOKEN_MATCH
// status: 500 STATUS_ERR_FINDING_USR
func (a *Api) Logout(res http.ResponseWriter, req *http.Request) {
	td := a.authenticate(res, req)
	if td == nil {
		return
	}

	if !a.Store.DeleteUserSessions(req.Context(), td.UserId) {
		a.logger(req).WithField("email", td.UserId).Info("logout found no session to remove")
	}
	sendStatus(res, http.StatusOK, "Logged out")
}

// status: 200 User
// status: 401 STATUS_NO_TOKEN, STATUS_NO_TOKEN_MATCH
// status: 404 STATUS_NO_MATCH
// status: 500 STATUS_ERR_FINDING_USR
func (a *Api) GetUserInfo(res http.ResponseWriter, req *http.Request) {
	td := a.authenticate(res, req)
	if td == nil {
		return
	}

	usr, err := a.Store.GetUser(req.Context(), td.UserId)
	if err != nil {
		a.logger(req).WithError(err).Error(STATUS_ERR_FINDING_USR)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_FINDING_USR)
		return
	}
	if usr == nil {
		a.logger(req).WithField("email", td.UserId).Info(STATUS_NO_MATCH)
		sendStatus(res, http.StatusNotFound, STATUS_NO_MATCH)
		return
	}
	sendModelAsRes(res, usr)
}

// status: 200
// status: 401 STATUS_NO_TOKEN, STATUS_NO_TOKEN_MATCH, STATUS_PW_WRONG
// status: 403 STATUS_MISSING_ID_PW
// status: 500 STATUS_ERR_FINDING_USR, STATUS_ERR_DELETING_USR
func (a *Api) DeleteUser(res http.ResponseWriter, req *http.Request) {
	td := a.authenticate(res, req)
	if td == nil {
		return
	}

	pw := getGivenDetail(req)["password"]
	if pw == "" {
		a.logger(req).Info(STATUS_MISSING_ID_PW)
		sendStatus(res, http.StatusForbidden, STATUS_MISSING_ID_PW)
		return
	}

	usr, err := a.Store.GetUser(req.Context(), td.UserId)
	if err != nil {
		a.logger(req).WithError(err).Error(STATUS_ERR_FINDING_USR)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_FINDING_USR)
		return
	}
	if usr == nil || !usr.PwsMatch(pw) {
		a.logger(req).WithField("email", td.UserId).Info(STATUS_PW_WRONG)
		sendStatus(res, http.StatusUnauthorized, STATUS_PW_WRONG)
		return
	}

	if !a.Store.DeleteUser(req.Context(), usr.Email) {
		a.logger(req).WithField("email", usr.Email).Error(STATUS_ERR_DELETING_USR)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_DELETING_USR)
		return
	}

	if err := a.notifier.NotifyUserDeleted(req.Context(), usr.Email); err != nil {
		a.logger(req).WithError(err).Warn("unable to announce the user deletion")
	}
	sendStatus(res, http.StatusOK, "User deleted")
}

// status: 200 {"updated": bool}
// status: 400 STATUS_MISSING_PREFERENCES
// status: 401 STATUS_NO_TOKEN, STATUS_NO_TOKEN_MATCH
// status: 500 STATUS_ERR_UPDATING_PREFS
func (a *Api) UpdatePreferences(res http.ResponseWriter, req *http.Request) {
	td := a.authenticate(res, req)
	if td == nil {
		return
	}

	var body struct {
		Preferences Preferences `json:"preferences"`
	}
	if req.Body == nil || json.NewDecoder(req.Body).Decode(&body) != nil || body.Preferences == nil {
		a.logger(req).Info(STATUS_MISSING_PREFERENCES)
		sendStatus(res, http.StatusBadRequest, STATUS_MISSING_PREFERENCES)
		return
	}

	updated, err := a.Store.UpdateUserPreferences(req.Context(), td.UserId, body.Preferences)
	if err != nil {
		a.logger(req).WithError(err).Error(STATUS_ERR_UPDATING_PREFS)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_UPDATING_PREFS)
		return
	}
	sendModelAsRes(res, map[string]bool{"updated": updated})
}

// ServerCheckToken lets an administrator inspect someone else's token.
//
// status: 200 token.TokenData
// status: 401 STATUS_NO_TOKEN, STATUS_NO_TOKEN_MATCH
// status: 403 STATUS_ADMIN_REQUIRED
// status: 404 STATUS_NO_TOKEN_MATCH
func (a *Api) ServerCheckToken(res http.ResponseWriter, req *http.Request, vars map[string]string) {
	caller := a.authenticate(res, req)
	if caller == nil {
		return
	}
	if !caller.IsAdmin {
		a.logger(req).WithField("email", caller.UserId).Info(STATUS_ADMIN_REQUIRED)
		sendStatus(res, http.StatusForbidden, STATUS_ADMIN_REQUIRED)
		return
	}

	td, err := a.checkToken(req, vars["token"])
	if err != nil {
		a.logger(req).WithError(err).Error(STATUS_ERR_FINDING_USR)
		sendStatus(res, http.StatusInternalServerError, STATUS_ERR_FINDING_USR)
		return
	}
	if td == nil {
		sendStatus(res, http.StatusNotFound, STATUS_NO_TOKEN_MATCH)
		return
	}
	sendModelAsRes(res, td)
}
