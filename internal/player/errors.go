package player

import (
	"errors"

	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
)

var (
	ErrNoVoiceChannel    = errors.New("join a voice channel first")
	ErrNotConnected      = errors.New("not connected")
	ErrMissingPermission = errors.New("missing CONNECT or SPEAK permission")
	ErrChannelMismatch   = errors.New("you need to be in my voice channel")
	ErrEmptyQueue        = errors.New("the queue is empty")
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrInvalidVolume     = errors.New("invalid volume")
	ErrTrackLookupFailed = errors.New("no tracks found")
	ErrNodeTimeout       = audionode.ErrTimeout

	ErrAlreadyConnected = errors.New("already connected")
	ErrAlreadyPaused    = errors.New("already paused")
	ErrNotPaused        = errors.New("not paused")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrSeekOutOfRange   = errors.New("position is outside the track")
	ErrSpotifyDisabled  = errors.New("spotify support is not configured")

	ErrVolumeNotNumber  = volumeError("volume must be a number")
	ErrVolumeOutOfRange = volumeError("volume must be between 0 and 100")
)

type volumeError string

func (e volumeError) Error() string { return string(e) }

func (e volumeError) Is(target error) bool { return target == ErrInvalidVolume }
