package transfer

type (
	Transfer struct {
		Code      string
		Filename  string
		Location  string
		Size      int64
		Expiry    int64
		Policy    string
		Owner     string
		State     string
		CreatedAt int64
	}
	Transfers []*Transfer
)
