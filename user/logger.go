package user

import (
	log "github.com/sirupsen/logrus"
)

//api logging prefix
const USER_API_PREFIX = "api/user "

var (
	storeLogger = log.WithField("component", "userstore")
	apiLogger   = log.WithField("component", "api/user")
)
