package types

/*
 UDP discovery datagram example

{
  "id": "f3c1a9...",            // device fingerprint, or hub id on beacons
  "name": "Office Display",
  "deviceType": "display",      // speaker | display | mobile | mic
  "macAddress": "aa:bb:cc:dd:ee:ff",
  "firmwareVersion": "1.4.2",
  "capabilities": ["tts", "wake-word"],
  "port": 53535,
  "version": "1.0",             // protocol version (major.minor)
  "hub": false,                 // true on hub presence beacons
  "announce": true              // true when the sender wants to be queued
}

*/

// AnnounceMessage is the payload of both hub presence beacons and inbound device
// announcements. Hub beacons set Hub=true and Announce=false; devices wanting to
// show up in the pending queue set Announce=true.
type AnnounceMessage struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DeviceType      string   `json:"deviceType"`
	MacAddress      string   `json:"macAddress,omitempty"`
	FirmwareVersion string   `json:"firmwareVersion,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	Port            int      `json:"port"`
	Version         string   `json:"version"`
	Hub             bool     `json:"hub"`
	Announce        bool     `json:"announce"`
}
