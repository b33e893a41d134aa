package audit

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/sirupsen/logrus"
)

const auditMeasurement = "model_audit"

// InfluxNotifier writes audit messages as points through the non-blocking write API. Write
// failures surface on the API's error channel and are only logged.
type InfluxNotifier struct {
	client influxdb2.Client
	writer api.WriteAPI
	log    logrus.FieldLogger
}

func NewInfluxNotifier(cfg model.InfluxConfig, log logrus.FieldLogger) *InfluxNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	client := influxdb2.NewClientWithOptions(cfg.Url, cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(50).SetFlushInterval(1000))
	writer := client.WriteAPI(cfg.Org, cfg.Bucket)

	n := &InfluxNotifier{
		client: client,
		writer: writer,
		log:    log.WithField("sink", "influx"),
	}
	go n.drainErrors(writer.Errors())
	return n
}

func (n *InfluxNotifier) drainErrors(errs <-chan error) {
	for err := range errs {
		n.log.WithError(err).Warn("failed to write audit point")
	}
}

func (n *InfluxNotifier) Info(modelId, message string) {
	n.write("info", modelId, message)
}

func (n *InfluxNotifier) Warning(modelId, message string) {
	n.write("warning", modelId, message)
}

func (n *InfluxNotifier) write(level, modelId, message string) {
	n.writer.WritePoint(influxdb2.NewPoint(auditMeasurement,
		map[string]string{"model_id": modelId, "level": level},
		map[string]interface{}{"message": message},
		time.Now()))
}

// Flush sends everything buffered so far.
func (n *InfluxNotifier) Flush() {
	n.writer.Flush()
}

// Close flushes pending points and releases the client.
func (n *InfluxNotifier) Close() {
	n.client.Close()
}
