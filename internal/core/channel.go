package core

import (
	"fmt"
	"strings"
)

// Channel selects which installed Cursor variant is targeted.
type Channel int

const (
	ChannelStable Channel = iota
	ChannelNightly
)

func (c Channel) String() string {
	if c == ChannelNightly {
		return "nightly"
	}
	return "stable"
}

// ProductDir is the per-channel directory name under the OS config root.
func (c Channel) ProductDir() string {
	if c == ChannelNightly {
		return "Cursor Nightly"
	}
	return "Cursor"
}

// DisplayName is the product name shown to users.
func (c Channel) DisplayName() string {
	return c.ProductDir()
}

func (c Channel) Alternate() Channel {
	if c == ChannelNightly {
		return ChannelStable
	}
	return ChannelNightly
}

func ChannelFromNightly(nightly bool) Channel {
	if nightly {
		return ChannelNightly
	}
	return ChannelStable
}

func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stable", "cursor", "release":
		return ChannelStable, nil
	case "nightly", "cursor-nightly", "cursor nightly":
		return ChannelNightly, nil
	}
	return ChannelStable, fmt.Errorf("unknown channel %q (want stable or nightly)", s)
}
