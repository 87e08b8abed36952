package media

import (
	"github.com/bluenviron/gortsplib/v5/pkg/description"
	"github.com/bluenviron/gortsplib/v5/pkg/format"
	"github.com/pion/webrtc/v4"
)

// selection is a media picked from the RTSP description together with the
// WebRTC codec it maps to.
type selection struct {
	media  *description.Media
	format format.Format
	codec  webrtc.RTPCodecCapability
	kind   string
}

// pickVideo returns the first video format WebRTC can carry as-is.
func pickVideo(desc *description.Session) (selection, bool) {
	var h264 *format.H264
	if medi := desc.FindFormat(&h264); medi != nil {
		return selection{
			media:  medi,
			format: h264,
			codec: webrtc.RTPCodecCapability{
				MimeType:    webrtc.MimeTypeH264,
				ClockRate:   90000,
				SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
			},
			kind: "video",
		}, true
	}

	var vp8 *format.VP8
	if medi := desc.FindFormat(&vp8); medi != nil {
		return selection{
			media:  medi,
			format: vp8,
			codec:  webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			kind:   "video",
		}, true
	}
	return selection{}, false
}

// pickAudio returns the first audio format WebRTC can carry as-is.
func pickAudio(desc *description.Session) (selection, bool) {
	var opus *format.Opus
	if medi := desc.FindFormat(&opus); medi != nil {
		return selection{
			media:  medi,
			format: opus,
			codec:  webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			kind:   "audio",
		}, true
	}

	var g711 *format.G711
	if medi := desc.FindFormat(&g711); medi != nil {
		mime := webrtc.MimeTypePCMA
		if g711.MULaw {
			mime = webrtc.MimeTypePCMU
		}
		return selection{
			media:  medi,
			format: g711,
			codec:  webrtc.RTPCodecCapability{MimeType: mime, ClockRate: 8000},
			kind:   "audio",
		}, true
	}
	return selection{}, false
}
