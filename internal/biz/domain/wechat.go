package domain

// FollowerPage is one page of the follower list
type FollowerPage struct {
	Total      int      `json:"total"`
	Count      int      `json:"count"`
	OpenIDs    []string `json:"openids"`
	NextOpenID string   `json:"next_openid"`
}

// IsLast checks if there are no further pages
func (p *FollowerPage) IsLast() bool {
	return p.NextOpenID == ""
}

// UserInfo is the follower profile returned by /cgi-bin/user/info
type UserInfo struct {
	Subscribe      int    `json:"subscribe"`
	OpenID         string `json:"openid"`
	Nickname       string `json:"nickname,omitempty"`
	Sex            int    `json:"sex,omitempty"`
	Language       string `json:"language,omitempty"`
	City           string `json:"city,omitempty"`
	Province       string `json:"province,omitempty"`
	Country        string `json:"country,omitempty"`
	HeadImgURL     string `json:"headimgurl,omitempty"`
	SubscribeTime  int64  `json:"subscribe_time,omitempty"`
	UnionID        string `json:"unionid,omitempty"`
	Remark         string `json:"remark,omitempty"`
	GroupID        int    `json:"groupid,omitempty"`
	TagIDList      []int  `json:"tagid_list,omitempty"`
	SubscribeScene string `json:"subscribe_scene,omitempty"`
	QRScene        int    `json:"qr_scene,omitempty"`
	QRSceneStr     string `json:"qr_scene_str,omitempty"`
}

// TemplateDescriptor describes a private template of the account
type TemplateDescriptor struct {
	TemplateID      string `json:"template_id"`
	Title           string `json:"title"`
	PrimaryIndustry string `json:"primary_industry"`
	DeputyIndustry  string `json:"deputy_industry"`
	Content         string `json:"content"`
	Example         string `json:"example"`
}

// TemplateDataItem is one keyword value of a template message
type TemplateDataItem struct {
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// MiniProgram is the mini program jump target of a template message
type MiniProgram struct {
	AppID    string `json:"appid"`
	PagePath string `json:"pagepath"`
}

// TemplateMessageRequest is the body of /cgi-bin/message/template/send
type TemplateMessageRequest struct {
	ToUser      string                      `json:"touser"`
	TemplateID  string                      `json:"template_id"`
	URL         string                      `json:"url,omitempty"`
	MiniProgram *MiniProgram                `json:"miniprogram,omitempty"`
	Data        map[string]TemplateDataItem `json:"data"`
}

// TemplateMessageResponse is the template send result.
// A nonzero ErrCode is a delivery failure, not a transport error.
type TemplateMessageResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	MsgID   int64  `json:"msgid,omitempty"`
}

// OK checks if the message was accepted
func (r *TemplateMessageResponse) OK() bool {
	return r.ErrCode == 0
}

// BatchResult partitions batch recipients by outcome
type BatchResult struct {
	Success []string `json:"success"`
	Failed  []string `json:"failed"`
}
