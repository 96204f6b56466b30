//go:build lambda

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"ro-array-designer/internal/optimizer"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// lambdaDesigner is built once per container. LOG_LEVEL and DESIGN_WORKERS
// override the defaults.
var lambdaDesigner = func() designer {
	c := DefaultToolConfig()
	c.LogFormat = "json"
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
	log, err := c.newLogger()
	if err != nil {
		log = logrus.New()
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if w := gjson.Parse(os.Getenv("DESIGN_WORKERS")); w.Type == gjson.Number {
		c.Tuning.Workers = int(w.Int())
	}
	return newDesigner(c, logrus.NewEntry(log))
}()

// handler accepts either a bare SystemSpec or {"spec": {...}}. A request
// with a "membrane" key and no spec returns that membrane's defaults.
func handler(_ context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, ErrorBody{Error: "invalid base64 body", Kind: outcomeInvalidInput})
		}
		body = string(decoded)
	}
	if !gjson.Valid(body) {
		return errResp(400, ErrorBody{Error: "invalid JSON", Kind: outcomeInvalidInput})
	}

	if m := gjson.Get(body, "membrane"); m.Exists() && !gjson.Get(body, "spec").Exists() {
		def, err := optimizer.DefaultsFor(optimizer.MembraneType(m.String()))
		if err != nil {
			return errResp(404, errorBody(err))
		}
		return okResp(def)
	}

	specJSON := body
	if s := gjson.Get(body, "spec"); s.IsObject() {
		specJSON = s.Raw
	}
	spec, err := parseSpecJSON(specJSON)
	if err != nil {
		eb := errorBody(err)
		eb.Kind = outcomeInvalidInput
		return errResp(400, eb)
	}

	res, err := lambdaDesigner.run(spec)
	if err != nil {
		return errResp(httpStatus(err), errorBody(err))
	}
	return okResp(res)
}

func okResp(v any) (events.LambdaFunctionURLResponse, error) {
	respJSON, err := json.Marshal(v)
	if err != nil {
		return errResp(500, ErrorBody{Error: err.Error(), Kind: outcomeError})
	}
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, eb ErrorBody) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(eb)
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	lambda.Start(handler)
}
