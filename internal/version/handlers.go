package version

import (
	"net/http"

	"github.com/citizenwallet/feed/internal/common"
)

// Version is set at build time with -ldflags "-X github.com/citizenwallet/feed/internal/version.Version=..."
var Version = "dev"

type Service struct {
	token string
}

func NewService(token string) *Service {
	return &Service{token: token}
}

type response struct {
	Version string `json:"version"`
	Token   string `json:"token"`
}

// Current returns the running version of the feed and the token it follows
func (s *Service) Current(w http.ResponseWriter, r *http.Request) {
	err := common.Body(w, &response{Version: Version, Token: s.token}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
