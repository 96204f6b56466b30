package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one named spec in a batch run. Design errors
// are reported per item; they never abort the batch.
type BatchItem struct {
	Name    string        `json:"name"`
	Outcome string        `json:"outcome"`
	Result  *DesignResult `json:"result,omitempty"`
	Error   *ErrorBody    `json:"error,omitempty"`
}

// runBatch designs every spec with at most limit running at once. Items
// keep the input order. Only context cancellation stops the batch early.
func (d designer) runBatch(ctx context.Context, specs []NamedSpec, limit int) ([]BatchItem, error) {
	items := make([]BatchItem, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, ns := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			log := d.log.WithField("spec", ns.Name)
			one := d
			one.log = log
			res, err := one.run(ns.Spec)
			item := BatchItem{Name: ns.Name, Outcome: outcomeOf(err)}
			if err != nil {
				body := errorBody(err)
				item.Error = &body
				log.WithError(err).Warn("[batch] design failed")
			} else {
				item.Result = &res
				log.WithFields(logrus.Fields{
					"configurations": len(res.Configurations),
					"best":           res.Configurations[0].ArrayNotation,
				}).Info("[batch] designed")
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, nil
}
