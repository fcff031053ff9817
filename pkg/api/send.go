package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MY-Final/napcat-plugin-email/pkg/apiresponses"
	"github.com/MY-Final/napcat-plugin-email/pkg/history"
	"github.com/MY-Final/napcat-plugin-email/pkg/mail"
	"github.com/MY-Final/napcat-plugin-email/pkg/system"
)

// MailController maps manual sends, test sends and connection checks onto
// HTTP routes. It is the caller responsible for recording dispatcher
// outcomes in history.
type MailController struct {
	dispatcher *mail.Dispatcher
	history    *history.Log
	log        *zap.SugaredLogger
}

func NewMailController(dispatcher *mail.Dispatcher, hist *history.Log, log *zap.SugaredLogger) *MailController {
	return &MailController{dispatcher: dispatcher, history: hist, log: log.Named("mail-api")}
}

func (mc *MailController) BasePath() string { return "mail" }

func (mc *MailController) Handlers() []gin.HandlerFunc { return nil }

func (mc *MailController) Register(rg *gin.RouterGroup) error {
	rg.POST("/send", mc.send)
	rg.POST("/test", mc.sendTest)
	rg.POST("/verify", mc.verify)
	return nil
}

func (mc *MailController) send(c *gin.Context) {
	var req mail.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Text == "" && req.HTML == "" {
		apiresponses.RespondBadRequest(c, "either text or html body is required")
		return
	}
	mc.deliver(c, req, history.SendManual)
}

// sendTest delivers a canned message so an operator can confirm an account
// works end to end. Body fields may override the defaults.
func (mc *MailController) sendTest(c *gin.Context) {
	var req mail.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Subject == "" {
		req.Subject = "Test email"
	}
	if req.Text == "" && req.HTML == "" {
		req.Text = "This is a test email from the napcat email plugin."
	}
	mc.deliver(c, req, history.SendTest)
}

func (mc *MailController) deliver(c *gin.Context, req mail.SendRequest, sendType history.SendType) {
	reqLog := system.GetReqLogger(c, mc.log)

	res := mc.dispatcher.Send(req)

	status := history.StatusSuccess
	errMsg := ""
	if !res.Success {
		reqLog.Warnw("Manual send failed", "to", req.To, "error", res.Message)
		status = history.StatusFailed
		errMsg = res.Message
	}
	attachments := make([]history.AttachmentMeta, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		name := a.Filename
		if name == "" {
			name = a.Path
		}
		ct := a.ContentType
		if ct == "" {
			ct = mail.ContentTypeByExtension(name)
		}
		attachments = append(attachments, history.AttachmentMeta{Filename: name, ContentType: ct})
	}
	mc.history.Add(history.AddParams{
		SendType:     sendType,
		AccountID:    req.AccountID,
		To:           req.To,
		Subject:      req.Subject,
		Text:         req.Text,
		HTML:         req.HTML,
		Status:       status,
		ErrorMessage: errMsg,
		Attachments:  attachments,
	})

	code := http.StatusOK
	if !res.Success {
		code = http.StatusBadGateway
	}
	c.JSON(code, res)
}

type verifyRequest struct {
	AccountID string `json:"accountId,omitempty"`
}

func (mc *MailController) verify(c *gin.Context) {
	var req verifyRequest
	// An empty body means "verify the default account".
	_ = c.ShouldBindJSON(&req)

	res := mc.dispatcher.VerifyConnection(req.AccountID)
	code := http.StatusOK
	if !res.Success {
		code = http.StatusBadGateway
	}
	c.JSON(code, res)
}
