package main

import (
	"encoding/hex"
	"flag"
	"log"
	"os"
	"strings"

	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
	"github.com/robotalks/cmdlink.go/pkg/l0/comm/device"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/cmdlink/"
	dumpHex bool
)

func init() {
	if val := os.Getenv("CMDLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&dumpHex, "x", false, "Dump packet payloads in hex.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	ps, err := mqtt.NewFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	ps.Sub("#", func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.TopicMeta):
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, "/"+mqtt.TopicEvents):
			cmd, data, err := mqtt.DecodeCommandEvent(payload)
			if err != nil {
				log.Printf("%s: bad event: %v", topic, err)
				return
			}
			log.Printf("%s: %s (%d bytes)%s", topic, device.CommandName(cmd), len(data), dump(data))
		default:
			c, err := l0.ContainerFrom(payload)
			if err != nil {
				log.Printf("%s: bad packet: %v", topic, err)
				return
			}
			if c.Type() == l0.PacketTypeCommand {
				log.Printf("%s: %s %s%s", topic, device.CommandName(c.CommandHeader().Command), c, dump(c.PayloadSlice()))
				return
			}
			log.Printf("%s: %s%s", topic, c, dump(c.PayloadSlice()))
		}
	})
	if err := ps.Connect(); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}

func dump(data []byte) string {
	if !dumpHex || len(data) == 0 {
		return ""
	}
	return " " + hex.EncodeToString(data)
}
