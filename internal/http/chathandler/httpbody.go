package chathandler

type CreateChannelBody struct {
	Name  string `json:"name"  binding:"required,min=1,max=64"`
	Topic string `json:"topic" binding:"max=256"`
} // @name CreateChannelRequest

type PostMessageBody struct {
	ChannelID string `json:"channelId" binding:"required"`
	Message   string `json:"message"   binding:"required,max=2000"`
} // @name PostMessageRequest

type PostMessageResponse struct {
	Ok bool   `json:"ok"`
	ID string `json:"id"`
} // @name PostMessageResponse

type ListMessagesQuery struct {
	Limit int `form:"limit,default=50" binding:"gte=0,lte=200"`
} // @name ListMessagesQuery

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
