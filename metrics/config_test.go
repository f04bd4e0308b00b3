package metrics

import "testing"

func TestSplitTags(t *testing.T) {
	tags, err := SplitTags("host=localhost, region=eu=west")
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags["host"] != "localhost" || tags["region"] != "eu=west" {
		t.Fatalf("unexpected tags %v", tags)
	}
	if tags, err := SplitTags(""); err != nil || len(tags) != 0 {
		t.Fatalf("empty tags: %v %v", tags, err)
	}
	if _, err := SplitTags("novalue"); err == nil {
		t.Fatal("expected error for tag without value")
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	cfg := DefaultConfig
	cfg.EnableInfluxDB, cfg.EnableInfluxDBV2 = true, true
	if err := Setup(cfg); err != nil {
		t.Fatalf("disabled metrics should not validate exporters: %v", err)
	}
	cfg.Enabled = true
	cfg.HTTP = ""
	if err := Setup(cfg); err == nil {
		t.Fatal("expected error for both InfluxDB exporters")
	}
}
