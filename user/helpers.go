package user

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mflix-org/marquee/common"
	"github.com/mflix-org/marquee/common/logging"
)

//Docode the http.Request parsing out the given details
func getGivenDetail(req *http.Request) (d map[string]string) {
	if req.ContentLength > 0 {
		if err := json.NewDecoder(req.Body).Decode(&d); err != nil {
			logging.FromContext(req.Context()).WithError(err).Info(USER_API_PREFIX + "error trying to decode given details")
			return nil
		}
	}
	return d
}

// Extract the email and password from the authorization
// line of an HTTP header. This function will handle the
// parsing and decoding of the line.
func unpackAuth(authLine string) (email string, pw string) {
	parts := strings.SplitN(authLine, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "basic") {
		return "", ""
	}
	decodedPayload, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ""
	}
	details := strings.SplitN(string(decodedPayload), ":", 2)
	if len(details) != 2 || details[0] == "" || details[1] == "" {
		return "", ""
	}
	return strings.ToLower(details[0]), details[1]
}

func sendModelAsRes(res http.ResponseWriter, model interface{}) {
	sendModelAsResWithStatus(res, model, http.StatusOK)
}

func sendModelAsResWithStatus(res http.ResponseWriter, model interface{}, statusCode int) {
	if err := common.OutputJSON(res, statusCode, model); err != nil {
		apiLogger.WithError(err).Warn("error writing the response")
	}
}

func sendStatus(res http.ResponseWriter, statusCode int, reason string) {
	sendModelAsResWithStatus(res, common.NewStatus(statusCode, reason), statusCode)
}
