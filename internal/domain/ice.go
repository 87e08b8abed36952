package domain

import (
	"fmt"
	"strings"
)

type IceServer struct {
	URLs       []string `json:"urls" mapstructure:"urls"`
	Username   *string  `json:"username" mapstructure:"username"`
	Credential *string  `json:"credential" mapstructure:"credential"`
}

// DefaultICEServers is the TURN set served until an admin replaces it.
func DefaultICEServers() []IceServer {
	return []IceServer{
		{
			URLs:       []string{"turn:localhost:3478?transport=udp", "turn:localhost:3478?transport=tcp"},
			Username:   strPtr("webrtc"),
			Credential: strPtr("webrtc"),
		},
		{
			URLs:       []string{"turn:localhost:3479?transport=udp", "turn:localhost:3479?transport=tcp"},
			Username:   strPtr("test"),
			Credential: strPtr("test"),
		},
	}
}

func (s IceServer) Validate() error {
	if len(s.URLs) == 0 {
		return fmt.Errorf("%w: missing urls", ErrInvalidConfig)
	}
	for _, u := range s.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("%w: urls must not contain empty entries", ErrInvalidConfig)
		}
	}
	return nil
}

// Clone returns a copy that shares no memory with s.
func (s IceServer) Clone() IceServer {
	out := IceServer{URLs: append([]string(nil), s.URLs...)}
	if s.Username != nil {
		out.Username = strPtr(*s.Username)
	}
	if s.Credential != nil {
		out.Credential = strPtr(*s.Credential)
	}
	return out
}

func CloneIceServers(in []IceServer) []IceServer {
	out := make([]IceServer, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func strPtr(s string) *string { return &s }
