package models

// MediaKind represents the kind of media (movie or series)
type MediaKind string

const (
	MediaKindMovie  MediaKind = "movie"
	MediaKindSeries MediaKind = "tv"
)

// Provider identifies a third-party list source
type Provider string

const (
	ProviderTraktList  Provider = "trakt"
	ProviderTraktChart Provider = "trakt_chart"
	ProviderMdbList    Provider = "mdblist"
	ProviderStevenLu   Provider = "stevenlu"
	ProviderAniList    Provider = "anilist"
)

// Valid reports whether p is a supported provider
func (p Provider) Valid() bool {
	switch p {
	case ProviderTraktList, ProviderTraktChart, ProviderMdbList, ProviderStevenLu, ProviderAniList:
		return true
	}
	return false
}

// ExecutionStatus represents the lifecycle state of a processing execution
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionError   ExecutionStatus = "error"
)

// Terminal reports whether no further transition is allowed
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionSuccess || s == ExecutionError
}

// TriggerKind tells what started a processing run
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
)

// Valid reports whether t is a known trigger kind
func (t TriggerKind) Valid() bool {
	return t == TriggerManual || t == TriggerScheduled
}

// MediaStatus is the destination-side state of a media item
type MediaStatus int

const (
	MediaStatusNone      MediaStatus = iota // unknown to the destination
	MediaStatusAvailable                    // present in the destination library
	MediaStatusRequested                    // pending, processing, deleted or blacklisted
)

func (s MediaStatus) String() string {
	switch s {
	case MediaStatusAvailable:
		return "available"
	case MediaStatusRequested:
		return "requested"
	default:
		return "none"
	}
}
