package device

import "testing"

func TestPlatformToggle(t *testing.T) {
	if Android.Toggle() != IOS {
		t.Fatalf("Android.Toggle() = %v, want IOS", Android.Toggle())
	}
	if IOS.Toggle() != Android {
		t.Fatalf("IOS.Toggle() = %v, want Android", IOS.Toggle())
	}
}

func TestParsePlatform(t *testing.T) {
	cases := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{"android", Android, false},
		{"Android", Android, false},
		{" ios ", IOS, false},
		{"IOS", IOS, false},
		{"windows", Android, true},
		{"", Android, true},
	}
	for _, tc := range cases {
		got, err := ParsePlatform(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePlatform(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePlatform(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePlatform(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Device", "My_Device"},
		{"Test-Device_123", "Test-Device_123"},
		{"Pixel 7 API 34", "Pixel_7_API_34"},
		{"Device@#$%", "Device____"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateConfigValidate(t *testing.T) {
	valid := CreateConfig{
		Name:          "Pixel 7 API 34",
		DeviceType:    "pixel_7",
		Version:       "34",
		RAMSizeMB:     2048,
		StorageSizeMB: 8192,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*CreateConfig)
	}{
		{"empty name", func(c *CreateConfig) { c.Name = "  " }},
		{"long name", func(c *CreateConfig) {
			c.Name = "0123456789012345678901234567890123456789012345678901234567890"
		}},
		{"no device type", func(c *CreateConfig) { c.DeviceType = "" }},
		{"no version", func(c *CreateConfig) { c.Version = "" }},
		{"ram too small", func(c *CreateConfig) { c.RAMSizeMB = 256 }},
		{"ram too large", func(c *CreateConfig) { c.RAMSizeMB = 16384 }},
		{"storage too small", func(c *CreateConfig) { c.StorageSizeMB = 512 }},
		{"storage too large", func(c *CreateConfig) { c.StorageSizeMB = 131072 }},
	}
	for _, tc := range cases {
		cfg := valid
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}

	// Zero RAM/storage means "backend default" and passes.
	cfg := valid
	cfg.RAMSizeMB = 0
	cfg.StorageSizeMB = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero sizing rejected: %v", err)
	}
}
