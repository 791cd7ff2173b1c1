package dialogue

import "github.com/xojiakbarxolboyev/telegrambot/internal/approval"

// Flow names.
const (
	FlowGate         = "gate"
	FlowRegistration = "registration"
	FlowSlide        = "slide"
	FlowImageVideo   = "image_video"
	FlowTextImage    = "text_image"
	FlowVideo        = "video"
	FlowTopicLookup  = "topic_lookup"
	FlowTopicAdd     = "topic_add"
	FlowTopicDelete  = "topic_delete"
	FlowFulfillment  = "fulfillment"
)

// Field names shared with the callers that consume completed flows.
const (
	FieldName    = "name"
	FieldAge     = "age"
	FieldRegion  = "region"
	FieldPhone   = "phone"
	FieldPrice   = "price"
	FieldProof   = "proof"
	FieldNumber  = "number"
	FieldMessage = "message"
	FieldFile    = "file"
	FieldStatus  = "status"
	FieldComment = "comment"
)

// KindSuffix is appended to a media field name to store the input kind next to the file id.
const KindSuffix = "_kind"

// Prices holds the ranges of the paid flows.
type Prices struct {
	Slide      PriceRange
	ImageVideo PriceRange
	TextImage  PriceRange
	Video      PriceRange
}

func paymentStep() Step {
	return Step{ID: "payment", Prompt: "payment", Field: FieldProof, Accept: AcceptProof, Payment: true}
}

// Flows returns every flow of the bot.
func Flows(p Prices) []Flow {
	return []Flow{
		{
			Name:  FlowGate,
			Steps: chain(Step{ID: "subscription", Prompt: "subscribe"}),
		},
		{
			Name: FlowRegistration,
			Steps: chain(
				Step{ID: "name", Prompt: "reg_name", Field: FieldName, Accept: AcceptText},
				Step{ID: "age", Prompt: "reg_age", Field: FieldAge, Accept: AcceptNumber},
				Step{ID: "region", Prompt: "reg_region", Field: FieldRegion, Accept: AcceptText},
				Step{ID: "phone", Prompt: "reg_phone", Field: FieldPhone, Accept: AcceptPhone},
			),
		},
		{
			Name:        FlowSlide,
			Kind:        approval.KindSlide,
			Cancellable: true,
			Price:       p.Slide,
			Steps: chain(
				Step{ID: "topic", Prompt: "slide_topic", Field: "topic", Accept: AcceptText},
				Step{ID: "pages", Prompt: "slide_pages", Field: "pages", Accept: AcceptNumber},
				Step{ID: "colors", Prompt: "slide_colors", Field: "colors", Accept: AcceptText},
				Step{ID: "text_amount", Prompt: "slide_text_amount", Field: "text_amount", Accept: AcceptText},
				Step{ID: "deadline", Prompt: "slide_deadline", Field: "deadline", Accept: AcceptText},
				Step{ID: "format", Prompt: "slide_format", Field: "format", Accept: AcceptText},
				paymentStep(),
			),
		},
		{
			Name:        FlowImageVideo,
			Kind:        approval.KindImageVideo,
			Cancellable: true,
			Price:       p.ImageVideo,
			Steps: chain(
				Step{ID: "image", Prompt: "i2v_image", Field: "image", Accept: AcceptPhoto},
				Step{ID: "description", Prompt: "i2v_description", Field: "description", Accept: AcceptText},
				paymentStep(),
			),
		},
		{
			Name:        FlowTextImage,
			Kind:        approval.KindTextImage,
			Cancellable: true,
			Price:       p.TextImage,
			Steps: chain(
				Step{ID: "description", Prompt: "t2i_description", Field: "description", Accept: AcceptText},
				paymentStep(),
			),
		},
		{
			Name:        FlowVideo,
			Kind:        approval.KindVideo,
			Cancellable: true,
			Price:       p.Video,
			Steps: chain(
				Step{ID: "description", Prompt: "video_description", Field: "description", Accept: AcceptText},
				Step{ID: "duration", Prompt: "video_duration", Field: "duration", Accept: AcceptText},
				paymentStep(),
			),
		},
		{
			Name:        FlowTopicLookup,
			Cancellable: true,
			Steps: chain(
				Step{ID: "number", Prompt: "topic_number", Field: FieldNumber, Accept: AcceptNumber, Lookup: LookupTopic},
			),
		},
		{
			Name:         FlowTopicAdd,
			Cancellable:  true,
			OperatorOnly: true,
			Steps: chain(
				Step{ID: "number", Prompt: "admin_topic_number", Field: FieldNumber, Accept: AcceptNumber},
				Step{ID: "message", Prompt: "admin_topic_message", Field: FieldMessage, Accept: AcceptText},
			),
		},
		{
			Name:         FlowTopicDelete,
			Cancellable:  true,
			OperatorOnly: true,
			Steps: chain(
				Step{ID: "number", Prompt: "admin_topic_delete", Field: FieldNumber, Accept: AcceptNumber},
			),
		},
		{
			Name:         FlowFulfillment,
			Cancellable:  true,
			OperatorOnly: true,
			Steps: chain(
				Step{ID: "file", Prompt: "admin_file", Field: FieldFile, Accept: AcceptMedia},
				Step{ID: "status", Prompt: "admin_status", Field: FieldStatus, Accept: AcceptNumber, Lookup: LookupStatus},
				Step{ID: "comment", Prompt: "admin_comment", Field: FieldComment, Accept: AcceptText},
			),
		},
	}
}
