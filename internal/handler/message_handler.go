package handler

import (
	"gated_chat_server/internal/dto/request"
	"gated_chat_server/internal/dto/respond"
	"gated_chat_server/internal/service"
	"gated_chat_server/internal/service/chat"
	"gated_chat_server/internal/service/message"
	"gated_chat_server/pkg/util/snowflake"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MessageHandler 消息相关接口
// 已读回执通过 notifier 推给原发送者
type MessageHandler struct {
	svc      service.MessageService
	notifier chat.GroupSender
}

func NewMessageHandler(svc service.MessageService, notifier chat.GroupSender) *MessageHandler {
	return &MessageHandler{svc: svc, notifier: notifier}
}

// Send 发送消息
// POST /message/send
// 请求体: request.SendMessageRequest
// 响应: respond.MessageRespond
func (h *MessageHandler) Send(c *gin.Context) {
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), message.SendInput{
		SenderId:       currentProfile(c),
		ConversationId: req.ConversationId,
		Content:        req.Content,
		AttachmentUrl:  req.AttachmentUrl,
		ParentId:       req.ParentId,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewMessageRespond(msg))
}

// Forward 转发消息
// POST /message/forward
// 响应: respond.ForwardRespond
func (h *MessageHandler) Forward(c *gin.Context) {
	var req request.ForwardMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	res, err := h.svc.Forward(c.Request.Context(), currentProfile(c), req.MessageId, req.ConversationIds)
	if err != nil {
		HandleError(c, err)
		return
	}
	out := respond.ForwardRespond{
		Created: make([]respond.MessageRespond, 0, len(res.Created)),
		Skipped: lo.Ternary(res.Skipped == nil, []string{}, res.Skipped),
		Failed:  lo.MapValues(res.Failed, func(err error, _ string) string { return err.Error() }),
	}
	for _, m := range res.Created {
		out.Created = append(out.Created, respond.NewMessageRespond(m))
	}
	HandleSuccess(c, out)
}

// Seen 批量已读，并给原发送者推送回执
// POST /message/seen
func (h *MessageHandler) Seen(c *gin.Context) {
	var req request.SeenMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	ctx := c.Request.Context()
	receipts, err := h.svc.MarkSeen(ctx, currentProfile(c), req.MessageIds.Int64s())
	if err != nil {
		HandleError(c, err)
		return
	}
	read := make(snowflake.IDs, 0, len(req.MessageIds))
	for _, r := range receipts {
		ids := snowflake.NewIDs(r.MessageIds)
		read = append(read, ids...)
		if _, err := h.notifier.GroupSend(ctx, chat.ChatGroup(r.SenderId), chat.EventSeen, chat.SeenReceiptPayload{
			ReaderId:   r.ReaderId,
			MessageIds: ids,
		}); err != nil {
			zap.L().Warn("push seen receipt failed", zap.String("sender", r.SenderId), zap.Error(err))
		}
	}
	HandleSuccess(c, gin.H{"message_ids": read})
}

// Get 查询消息
// GET /message/get?message_id=xxx
func (h *MessageHandler) Get(c *gin.Context) {
	var req request.GetMessageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	msg, err := h.svc.Get(c.Request.Context(), currentProfile(c), req.MessageId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewMessageRespond(msg))
}
