package driver

import "testing"

func TestHost(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://www.zhipin.com/web/geek/jobs?x=1", "www.zhipin.com", false},
		{"http://127.0.0.1:8080/resume", "127.0.0.1", false},
		{"not a url", "", true},
	}
	for _, tt := range tests {
		got, err := Host(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Host(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestLaunchOptionsDefaults(t *testing.T) {
	o := LaunchOptions{Width: 1280}.WithDefaults()
	if o.Width != 1280 || o.Height != 1080 {
		t.Errorf("defaults = %+v", o)
	}
}
