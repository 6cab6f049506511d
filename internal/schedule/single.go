package schedule

// SingleOccurrence is a one-time maintenance window in epoch seconds.
// End is meaningless when OpenEnded is set.
type SingleOccurrence struct {
	Start     int64
	End       int64
	OpenEnded bool
}

func (SingleOccurrence) isSchedule() {}

// NewSingleOccurrence normalizes the open-ended flag: openEnded always
// suppresses end, and an end of zero means open-ended.
func NewSingleOccurrence(start, end int64, openEnded bool) SingleOccurrence {
	if openEnded || end == 0 {
		return SingleOccurrence{Start: start, OpenEnded: true}
	}
	return SingleOccurrence{Start: start, End: end}
}

// ToUTCEpoch converts a wall-clock reading in zone to epoch seconds.
func ToUTCEpoch(local LocalDateTime, zone string, o Oracle) (int64, error) {
	must(local.Validate())
	return resolveWall(o, zone, local.wall(), local.Repeated)
}

// FromUTCEpoch converts epoch seconds to a wall-clock reading in zone.
// ToUTCEpoch(FromUTCEpoch(e)) == e for every e.
func FromUTCEpoch(epoch int64, zone string, o Oracle) (LocalDateTime, error) {
	off, err := offsetSeconds(o, zone, epoch)
	if err != nil {
		return LocalDateTime{}, err
	}
	wall := epoch + off
	local := localFromWall(wall)

	first, err := resolveWall(o, zone, wall, false)
	if err != nil {
		return LocalDateTime{}, err
	}
	local.Repeated = first != epoch
	return local, nil
}

// LocalWindow is a single occurrence expressed in a local zone.
type LocalWindow struct {
	Start     LocalDateTime
	End       LocalDateTime
	OpenEnded bool
}

// Localize converts the occurrence to zone. The end of an open-ended
// window is never converted.
func (s SingleOccurrence) Localize(zone string, o Oracle) (LocalWindow, error) {
	start, err := FromUTCEpoch(s.Start, zone, o)
	if err != nil {
		return LocalWindow{}, err
	}
	if s.OpenEnded || s.End == 0 {
		return LocalWindow{Start: start, OpenEnded: true}, nil
	}
	end, err := FromUTCEpoch(s.End, zone, o)
	if err != nil {
		return LocalWindow{}, err
	}
	return LocalWindow{Start: start, End: end}, nil
}

// Occurrence converts a local window back to epoch seconds.
func (w LocalWindow) Occurrence(zone string, o Oracle) (SingleOccurrence, error) {
	start, err := ToUTCEpoch(w.Start, zone, o)
	if err != nil {
		return SingleOccurrence{}, err
	}
	if w.OpenEnded {
		return NewSingleOccurrence(start, 0, true), nil
	}
	end, err := ToUTCEpoch(w.End, zone, o)
	if err != nil {
		return SingleOccurrence{}, err
	}
	return NewSingleOccurrence(start, end, false), nil
}
