package instagram

// Media is the published reel as returned by configure_to_clips.
type Media struct {
	ID            string         `json:"id"`
	PK            int64          `json:"pk"`
	Code          string         `json:"code"`
	MediaType     int            `json:"media_type"`
	ClipsMetadata *ClipsMetadata `json:"clips_metadata"`
}

// ClipsMetadata is the subset of reel metadata the client understands.
// Instagram reshapes this object from time to time, which surfaces as a
// decode error naming clips_metadata.
type ClipsMetadata struct {
	AudioType         string             `json:"audio_type"`
	IsSharedToFB      bool               `json:"is_shared_to_fb"`
	OriginalSoundInfo *OriginalSoundInfo `json:"original_sound_info"`
}

type OriginalSoundInfo struct {
	AudioAssetID       int64  `json:"audio_asset_id"`
	OriginalAudioTitle string `json:"original_audio_title"`
	DurationInMS       int    `json:"duration_in_ms"`
}

type configureClipResponse struct {
	Media   Media  `json:"media"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
