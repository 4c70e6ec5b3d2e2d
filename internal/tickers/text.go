package tickers

// Text marshalling lets records carrying typed tickers pass through JSON,
// TOML and database codecs. An empty text decodes to the zero value.

func (t FullTicker) MarshalText() ([]byte, error)     { return []byte(t.text), nil }
func (t LocalTicker) MarshalText() ([]byte, error)    { return []byte(t.text), nil }
func (t ProviderCode) MarshalText() ([]byte, error)   { return []byte(t.text), nil }
func (t DataTypeTicker) MarshalText() ([]byte, error) { return []byte(t.text), nil }
func (t QueryTicker) MarshalText() ([]byte, error)    { return []byte(t.text), nil }

func (t *FullTicker) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = FullTicker{}
		return nil
	}
	v, err := NewFullTicker(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *LocalTicker) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = LocalTicker{}
		return nil
	}
	v, err := NewLocalTicker(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *ProviderCode) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = ProviderCode{}
		return nil
	}
	v, err := NewProviderCode(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *DataTypeTicker) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = DataTypeTicker{}
		return nil
	}
	v, err := NewDataTypeTicker(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *QueryTicker) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = QueryTicker{}
		return nil
	}
	v, err := NewQueryTicker(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
