package transfer

type (
	Transfer struct {
		Code     string `json:"code"`
		URL      string `json:"url"`
		Expiry   string `json:"expiry"`
		OneShot  bool   `json:"one_shot"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
		Owner    string `json:"owner,omitempty"`
	}
	Transfers    []Transfer
	ResponseData struct {
		Data Transfers `json:"data"`
	}

	SweepResponse struct {
		Expired int `json:"expired"`
		Orphans int `json:"orphans"`
	}
)
