package influxdb

import (
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/madrasiot/trackd/geo/anomaly"
	"github.com/madrasiot/trackd/params"
)

// ExportPredictions posts scored observations to an InfluxDB Write API.
// Because it accepts a slice, use batches. The Write API will buffer and flush.
// The last error encountered is returned.
func ExportPredictions(device string, predictions []anomaly.Prediction) error {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(params.INFLUXDB_URL, params.INFLUXDB_TOKEN, opts)
	writeAPI := client.WriteAPI(params.INFLUXDB_ORG, params.INFLUXDB_BUCKET)

	// Errors returns a channel for reading errors which occurs during async writes.
	// Must be called before performing any writes for errors to be collected.
	// The chan is unbuffered and must be drained or the writer will block.
	// https://github.com/influxdata/influxdb-client-go?tab=readme-ov-file#reading-async-errors
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	for _, pred := range predictions {
		anomalyTag := "normal"
		if pred.Result.IsAnomaly {
			anomalyTag = "anomaly"
		}
		p := influxdb2.NewPointWithMeasurement("prediction").
			SetTime(pred.Observation.Time).
			AddTag("device", device).
			AddTag("anomaly", anomalyTag).
			AddField("latitude", pred.Observation.Lat).
			AddField("longitude", pred.Observation.Lon).
			AddField("hour", pred.Observation.Hour).
			AddField("day_of_week", pred.Observation.DayOfWeek).
			AddField("confidence", pred.Result.Confidence).
			AddField("data_points", pred.Result.DataPoints)

		writeAPI.WritePoint(p)
	}

	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}
