package rtc

import (
	"errors"
	"strings"

	"github.com/pion/sdp/v3"
)

var errNoMedia = errors.New("session description has no media sections")

func parseDescription(raw string) (*sdp.SessionDescription, error) {
	var sd sdp.SessionDescription
	if err := sd.UnmarshalString(raw); err != nil {
		return nil, err
	}
	if len(sd.MediaDescriptions) == 0 {
		return nil, errNoMedia
	}
	return &sd, nil
}

// mediaSummary renders "kind:formats" for each media section, for logging.
func mediaSummary(sd *sdp.SessionDescription) []string {
	out := make([]string, 0, len(sd.MediaDescriptions))
	for _, md := range sd.MediaDescriptions {
		out = append(out, md.MediaName.Media+":"+strings.Join(md.MediaName.Formats, ","))
	}
	return out
}
