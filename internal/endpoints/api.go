package endpoints

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope used by every endpoint except the plain
// history list, which keeps the bare-array contract dashboards consume.
type APIResponse struct {
	Status    bool        `json:"status"`
	Value     interface{} `json:"value,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode int         `json:"error_code"`
}

func (res APIResponse) WriteErrorResponse(w http.ResponseWriter, err error) {
	res.WriteErrorResponseWithStatusCode(w, err, http.StatusInternalServerError)
}

func (res APIResponse) WriteErrorResponseWithStatusCode(w http.ResponseWriter, err error, statusCode int) {
	res.Status = false
	res.Error = err.Error()
	if statusCode == http.StatusUnauthorized {
		res.ErrorCode = API_UNAUTHORIZED
	} else {
		res.ErrorCode = GetErrorCode(err)
	}

	writeJSON(w, statusCode, res)
}

func (res APIResponse) WriteResultResponse(w http.ResponseWriter, result interface{}) {
	res.Status = true
	res.Value = result
	res.ErrorCode = GetErrorCode(nil)

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(statusCode)
	w.Write(body)
}
