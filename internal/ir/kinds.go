package ir

import "strings"

// EventType identifies a trigger kind.
type EventType string

const (
	EventMouseClick          EventType = "MOUSE_CLICK"
	EventMouseSecondClick    EventType = "MOUSE_SECOND_CLICK"
	EventMouseDown           EventType = "MOUSE_DOWN"
	EventMouseUp             EventType = "MOUSE_UP"
	EventMouseOver           EventType = "MOUSE_OVER"
	EventMouseOut            EventType = "MOUSE_OUT"
	EventMouseMove           EventType = "MOUSE_MOVE"
	EventMouseMoveInViewport EventType = "MOUSE_MOVE_IN_VIEWPORT"
	EventScrollIntoView      EventType = "SCROLL_INTO_VIEW"
	EventScrollOutOfView     EventType = "SCROLL_OUT_OF_VIEW"
	EventScrollingInView     EventType = "SCROLLING_IN_VIEW"
	EventPageScroll          EventType = "PAGE_SCROLL"
	EventPageScrollUp        EventType = "PAGE_SCROLL_UP"
	EventPageScrollDown      EventType = "PAGE_SCROLL_DOWN"
	EventPageStart           EventType = "PAGE_START"
	EventPageFinish          EventType = "PAGE_FINISH"
	EventTabActive           EventType = "TAB_ACTIVE"
	EventTabInactive         EventType = "TAB_INACTIVE"
	EventSliderActive        EventType = "SLIDER_ACTIVE"
	EventSliderInactive      EventType = "SLIDER_INACTIVE"
	EventDropdownOpen        EventType = "DROPDOWN_OPEN"
	EventDropdownClose       EventType = "DROPDOWN_CLOSE"
	EventNavbarOpen          EventType = "NAVBAR_OPEN"
	EventNavbarClose         EventType = "NAVBAR_CLOSE"
	EventCartOpen            EventType = "ECOMMERCE_CART_OPEN"
	EventCartClose           EventType = "ECOMMERCE_CART_CLOSE"
)

// EventTypes lists every trigger kind in a stable order.
var EventTypes = []EventType{
	EventMouseClick, EventMouseSecondClick, EventMouseDown, EventMouseUp,
	EventMouseOver, EventMouseOut, EventMouseMove, EventMouseMoveInViewport,
	EventScrollIntoView, EventScrollOutOfView, EventScrollingInView,
	EventPageScroll, EventPageScrollUp, EventPageScrollDown,
	EventPageStart, EventPageFinish,
	EventTabActive, EventTabInactive, EventSliderActive, EventSliderInactive,
	EventDropdownOpen, EventDropdownClose, EventNavbarOpen, EventNavbarClose,
	EventCartOpen, EventCartClose,
}

// Continuous reports whether the kind publishes parameter values instead of
// firing discrete transitions.
func (t EventType) Continuous() bool {
	switch t {
	case EventMouseMove, EventMouseMoveInViewport, EventPageScroll, EventScrollingInView:
		return true
	}
	return false
}

// ActionType identifies an action item kind.
type ActionType string

const (
	ActionTransformMove   ActionType = "TRANSFORM_MOVE"
	ActionTransformScale  ActionType = "TRANSFORM_SCALE"
	ActionTransformRotate ActionType = "TRANSFORM_ROTATE"
	ActionTransformSkew   ActionType = "TRANSFORM_SKEW"

	ActionStyleOpacity         ActionType = "STYLE_OPACITY"
	ActionStyleSize            ActionType = "STYLE_SIZE"
	ActionStyleFilter          ActionType = "STYLE_FILTER"
	ActionStyleBackgroundColor ActionType = "STYLE_BACKGROUND_COLOR"
	ActionStyleBorder          ActionType = "STYLE_BORDER"
	ActionStyleTextColor       ActionType = "STYLE_TEXT_COLOR"
	ActionStyleBoxShadow       ActionType = "STYLE_BOX_SHADOW"

	ActionGeneralDisplay    ActionType = "GENERAL_DISPLAY"
	ActionGeneralStart      ActionType = "GENERAL_START_ACTION"
	ActionGeneralContinuous ActionType = "GENERAL_CONTINUOUS_ACTION"
	ActionGeneralStop       ActionType = "GENERAL_STOP_ACTION"
	ActionGeneralComboClass ActionType = "GENERAL_COMBO_CLASS"
	ActionGeneralLoop       ActionType = "GENERAL_LOOP"

	ActionPluginScrub ActionType = "PLUGIN_SCRUB"
)

// PluginPrefix marks action types whose rendering is delegated to a plugin.
const PluginPrefix = "PLUGIN_"

// Category groups action types by how they are rendered.
type Category uint8

const (
	CategoryUnknown   Category = iota
	CategoryTransform          // composed into one transform property
	CategoryStyle              // one style property per item
	CategoryGeneral            // zero-duration side effects
	CategoryPlugin             // delegated to a registered plugin
)

func (c Category) String() string {
	switch c {
	case CategoryTransform:
		return "transform"
	case CategoryStyle:
		return "style"
	case CategoryGeneral:
		return "general"
	case CategoryPlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Category returns the render category for the action type.
func (t ActionType) Category() Category {
	switch t {
	case ActionTransformMove, ActionTransformScale, ActionTransformRotate, ActionTransformSkew:
		return CategoryTransform
	case ActionStyleOpacity, ActionStyleSize, ActionStyleFilter, ActionStyleBackgroundColor,
		ActionStyleBorder, ActionStyleTextColor, ActionStyleBoxShadow:
		return CategoryStyle
	case ActionGeneralDisplay, ActionGeneralStart, ActionGeneralContinuous, ActionGeneralStop,
		ActionGeneralComboClass, ActionGeneralLoop:
		return CategoryGeneral
	}
	if strings.HasPrefix(string(t), PluginPrefix) {
		return CategoryPlugin
	}
	return CategoryUnknown
}

// TransformOrder is the order transform functions are composed in.
var TransformOrder = []ActionType{
	ActionTransformMove, ActionTransformScale, ActionTransformRotate, ActionTransformSkew,
}

// QuickEffect reports whether an event action applies its effect directly
// instead of starting a timeline. Only start actions and continuous actions
// reference timelines; anything else on an event is a quick effect.
func (t ActionType) QuickEffect() bool {
	switch t.Category() {
	case CategoryTransform, CategoryStyle, CategoryPlugin:
		return true
	}
	return false
}

// AppliesTo names what an event target resolves against.
type AppliesTo string

const (
	AppliesToElement AppliesTo = "ELEMENT"
	AppliesToClass   AppliesTo = "CLASS"
	AppliesToPage    AppliesTo = "PAGE"
)

// Scope is a relative-targeting mode for action item targets.
type Scope string

const (
	ScopeNone              Scope = ""
	ScopeSelf              Scope = "SELF"
	ScopeChildren          Scope = "CHILDREN"
	ScopeImmediateChildren Scope = "IMMEDIATE_CHILDREN"
	ScopeSiblings          Scope = "SIBLINGS"
	ScopeParent            Scope = "PARENT"
)

// Continuous-config enums.
const (
	BasedOnElement  = "ELEMENT"
	BasedOnViewport = "VIEWPORT"
	BasedOnPage     = "PAGE"

	AxisX = "X_AXIS"
	AxisY = "Y_AXIS"

	UnitPercent = "%"
	UnitPixels  = "PX"
	UnitAuto    = "AUTO"
)
