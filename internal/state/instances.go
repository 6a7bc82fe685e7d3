package state

import (
	"math"
	"slices"

	"github.com/roach88/ixengine/internal/easing"
	"github.com/roach88/ixengine/internal/ir"
)

// MinVelocity is the slowest a continuous instance converges per frame.
const MinVelocity = 0.01

// ReduceInstances owns live instances and advances them each frame.
func ReduceInstances(prev *Instances, a Action) *Instances {
	if prev == nil {
		prev = &Instances{ByID: map[string]Instance{}}
	}
	switch act := a.(type) {
	case InstanceAdded:
		inst := act.Instance
		byID := cloneMap(prev.ByID)
		order := prev.Order
		if _, exists := byID[inst.ID]; !exists {
			order = append(slices.Clone(prev.Order), inst.ID)
		}
		byID[inst.ID] = inst
		return &Instances{ByID: byID, Order: order}

	case InstanceStarted:
		inst, ok := prev.ByID[act.ID]
		if !ok {
			return prev
		}
		inst.Active = true
		inst.Complete = false
		inst.Start = act.Time
		byID := cloneMap(prev.ByID)
		byID[act.ID] = inst
		return &Instances{ByID: byID, Order: prev.Order}

	case InstanceRemoved:
		if _, ok := prev.ByID[act.ID]; !ok {
			return prev
		}
		byID := cloneMap(prev.ByID)
		delete(byID, act.ID)
		order := slices.DeleteFunc(slices.Clone(prev.Order), func(id string) bool { return id == act.ID })
		return &Instances{ByID: byID, Order: order}

	case AnimationFrameChanged:
		return advanceAll(prev, act)

	case SessionStopped:
		return &Instances{ByID: map[string]Instance{}}
	}
	return prev
}

func advanceAll(prev *Instances, frame AnimationFrameChanged) *Instances {
	var byID map[string]Instance
	var changedIDs []string
	for _, id := range prev.Order {
		inst := prev.ByID[id]
		if !inst.Active || inst.Complete {
			continue
		}
		var next Instance
		var changed bool
		if inst.Continuous {
			next, changed = AdvanceContinuous(inst, frame.Parameters)
		} else {
			next, changed = AdvanceTimed(inst, frame.Now)
		}
		if !changed {
			continue
		}
		if byID == nil {
			byID = cloneMap(prev.ByID)
		}
		byID[id] = next
		changedIDs = append(changedIDs, id)
	}
	if byID == nil {
		return prev
	}
	return &Instances{ByID: byID, Order: prev.Order, Changed: changedIDs}
}

// AdvanceTimed moves a timed instance to now. Before its delay elapses the
// instance is unchanged; a zero duration completes immediately.
func AdvanceTimed(inst Instance, now float64) (Instance, bool) {
	elapsed := now - inst.Start
	if elapsed < inst.Delay {
		return inst, false
	}
	position := 1.0
	if inst.Duration > 0 {
		position = math.Min(math.Max((elapsed-inst.Delay)/inst.Duration, 0), 1)
	}
	if position == inst.Position && inst.Current != nil {
		return inst, false
	}
	inst.Position = position
	inst.Current = ir.Lerp(inst.Origin, inst.Destination, easing.Apply(inst.Easing, position))
	inst.Complete = position >= 1
	return inst, true
}

// AdvanceContinuous moves a continuous instance one step toward its
// parameter. The step covers a fixed fraction of the remaining distance, so
// the position approaches the target without passing it. A missing parameter
// snaps to the resting value.
func AdvanceContinuous(inst Instance, params map[string]float64) (Instance, bool) {
	target, ok := params[inst.ParameterID]
	velocity := math.Max(1-inst.Smoothing, MinVelocity)
	if !ok {
		target = inst.RestingValue
		velocity = 1
	}
	target = math.Max(target, 0)

	position := inst.Position
	if diff := target - position; diff != 0 {
		position += diff * velocity
	}
	if position == inst.Position && inst.Current != nil {
		return inst, false
	}
	inst.Position = position
	inst.Current = SampleKeyframes(inst.Keyframes, position)
	return inst, true
}

// SampleKeyframes interpolates keyframes at position. Positions outside the
// keyframe range hold the nearest end; each segment is eased with the
// easing of its starting keyframe.
func SampleKeyframes(frames []Keyframe, position float64) ir.Channels {
	switch len(frames) {
	case 0:
		return ir.Channels{}
	case 1:
		return frames[0].Values.Clone()
	}
	if position <= frames[0].Position {
		return frames[0].Values.Clone()
	}
	last := frames[len(frames)-1]
	if position >= last.Position {
		return last.Values.Clone()
	}
	for i := 0; i < len(frames)-1; i++ {
		from, to := frames[i], frames[i+1]
		if position > to.Position {
			continue
		}
		span := to.Position - from.Position
		local := 1.0
		if span > 0 {
			local = (position - from.Position) / span
		}
		return ir.Lerp(from.Values, to.Values, easing.Apply(from.Easing, local))
	}
	return last.Values.Clone()
}
