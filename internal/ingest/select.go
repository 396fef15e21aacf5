package ingest

import "reflect"

// Select blocks until one of chans yields a value or is closed and
// drained, returning the index of the channel that fired and the value
// it carried. It exists because Go's select statement requires a fixed,
// literal set of cases: a receiver whose channel set changes at
// runtime — the common case for ReceiverSet — has to build its case
// list dynamically, which only reflect.Select supports.
//
// Each channel contributes two cases (its data channel and its done
// signal) so a closed-and-drained channel is reported rather than
// silently ignored. ok is false if chans is empty, or if the chosen
// channel was closed with nothing left to drain.
func Select[T any](chans []*Channel[T]) (index int, value T, ok bool) {
	if len(chans) == 0 {
		var zero T
		return -1, zero, false
	}

	cases := make([]reflect.SelectCase, 0, len(chans)*2)
	for _, c := range chans {
		cases = append(cases,
			reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.rawChan())},
			reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.done)},
		)
	}

	chosen, recv, recvOK := reflect.Select(cases)
	index = chosen / 2
	c := chans[index]

	var m sizedMsg[T]
	if chosen%2 == 0 && recvOK {
		m = recv.Interface().(sizedMsg[T])
	} else {
		// The done case can win while data is still buffered; drain first.
		select {
		case m = <-c.rawChan():
		default:
			var zero T
			return index, zero, false
		}
	}

	c.inFlight.Add(-m.size)
	c.sem.Release(m.size)
	return index, m.val, true
}
