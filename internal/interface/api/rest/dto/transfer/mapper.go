package transfer

import (
	"devtransfer/internal/domain/transfer"
)

// ExpiryLayout is the UTC timestamp format the devtrans client parses.
const ExpiryLayout = "2006-01-02T15:04:05"

func DownloadURL(baseURL, code string) string {
	return baseURL + "/download/" + code
}

func ToResponseTransfer(rec transfer.Record, baseURL string) Transfer {
	return Transfer{
		Code:     rec.Code,
		URL:      DownloadURL(baseURL, rec.Code),
		Expiry:   rec.Expiry.UTC().Format(ExpiryLayout),
		OneShot:  rec.Policy == transfer.PolicyOneShot,
		Filename: rec.Filename,
		Size:     rec.Size,
		Owner:    rec.Owner,
	}
}

func ToResponseTransfers(recs transfer.Records, baseURL string) Transfers {
	out := make(Transfers, len(recs))
	for idx, rec := range recs {
		out[idx] = ToResponseTransfer(*rec, baseURL)
	}

	return out
}
