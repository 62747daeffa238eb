// Package finish checks a submitted run before it reaches the store.
package finish

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/okian/trackrank/internal/domain/model"
)

// Validate checks f against the map it was driven on. A run must carry one
// checkpoint time per checkpoint plus the finish line, when the map declares
// its checkpoint count, and those times must add up to the run time. No
// checkpoint times sum to zero.
func Validate(f model.Finish, m model.Map) error {
	cpsRules := []validation.Rule{validation.By(sumsTo(f.Time))}
	if m.CpsNumber != nil {
		n := int(*m.CpsNumber) + 1
		cpsRules = append(cpsRules, validation.Required, validation.Length(n, n).Error("must hold one time per checkpoint plus the finish"))
	}

	err := validation.ValidateStruct(&f,
		validation.Field(&f.RespawnCount, validation.Min(int32(0))),
		validation.Field(&f.Cps, cpsRules...),
	)
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for name, ferr := range errs {
		fields[name] = ferr.Error()
	}
	return &ValidationError{Fields: fields}
}

func sumsTo(total int32) validation.RuleFunc {
	return func(value interface{}) error {
		cps, _ := value.([]int32)
		var sum int64
		for _, cp := range cps {
			sum += int64(cp)
		}
		if sum != int64(total) {
			return errors.New("must add up to the run time")
		}
		return nil
	}
}
