package scene

import (
	"go.uber.org/zap"

	"github.com/Faultbox/mu-client/internal/engine/skeleton"
)

// Animate evaluates the pose of the current action at the frame's playback
// time. Objects following their parent's animation never animate.
func (o *ModelObject) Animate(ft FrameTime) {
	if o.LinkParentAnimation || o.Model == nil || len(o.Model.Actions) == 0 || o.pose == nil {
		return
	}
	if o.CurrentAction < 0 || o.CurrentAction >= len(o.Model.Actions) {
		return
	}

	action := o.Model.Actions[o.CurrentAction]
	if action.IsStatic() {
		if o.priorAction != o.CurrentAction {
			o.generatePose(o.CurrentAction, skeleton.StaticFrame)
		}
		o.priorAction = o.CurrentAction
		return
	}

	f := skeleton.SelectFrames(ft.Total.Seconds(), o.AnimationSpeed*action.Speed(), action.Keys)
	o.generatePose(o.CurrentAction, f)
	o.priorAction = o.CurrentAction
}

// generatePose evaluates the skeleton and, when any bone moved, invalidates
// buffers and recomputes bounds, including those of linked descendants.
func (o *ModelObject) generatePose(action int, f skeleton.Frame) {
	changed, err := skeleton.Evaluate(o.Model, action, f, o.BodyHeight, o.pose)
	if err != nil {
		o.logger().Warn("evaluating pose",
			zap.String("object", o.Name),
			zap.Int("action", action),
			zap.Error(err))
		return
	}
	if changed {
		o.InvalidateBuffers()
		o.UpdateBounds()
		o.updateLinkedBounds()
	}
}

func (o *ModelObject) updateLinkedBounds() {
	o.eachChild(func(c *ModelObject) {
		if c.LinkParentAnimation {
			c.UpdateBounds()
			c.updateLinkedBounds()
		}
	})
}
