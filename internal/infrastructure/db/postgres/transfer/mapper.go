package transfer

import (
	"time"

	domain "devtransfer/internal/domain/transfer"
)

func fromDBModel(model *Transfer) *domain.Record {
	return &domain.Record{
		Code:     model.Code,
		Filename: model.Filename,
		Location: model.Location,
		Size:     model.Size,
		Expiry:   time.Unix(model.Expiry, 0).UTC(),
		Policy:   domain.ParsePolicy(model.Policy),
		Owner:    model.Owner,
		State:    domain.State(model.State),

		CreatedAt: time.Unix(model.CreatedAt, 0).UTC(),
	}
}

func fromDBModels(models Transfers) domain.Records {
	rs := make(domain.Records, len(models))
	for idx, m := range models {
		rs[idx] = fromDBModel(m)
	}

	return rs
}

func toDBModel(rec *domain.Record) *Transfer {
	return &Transfer{
		Code:      rec.Code,
		Filename:  rec.Filename,
		Location:  rec.Location,
		Size:      rec.Size,
		Expiry:    rec.Expiry.Unix(),
		Policy:    string(rec.Policy),
		Owner:     rec.Owner,
		State:     string(domain.StatePending),
		CreatedAt: rec.CreatedAt.Unix(),
	}
}

func statesToStrings(states []domain.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}

	return out
}
